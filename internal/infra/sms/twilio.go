// Package sms provides the Twilio delivery channel: greetings go out as SMS
// through the Twilio Messages REST API.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"birthday-courier/internal/resilience/circuitbreaker"
	"birthday-courier/internal/usecase/greet"
)

// defaultBaseURL is the production Twilio API endpoint.
const defaultBaseURL = "https://api.twilio.com"

// Config contains configuration for the Twilio SMS channel.
type Config struct {
	// AccountSID identifies the Twilio account.
	AccountSID string

	// AuthToken authenticates API requests alongside the account SID.
	AuthToken string

	// FromNumber is the E.164 sender number greetings are sent from.
	FromNumber string

	// BaseURL overrides the Twilio API endpoint. Empty selects production.
	BaseURL string

	// Timeout is the HTTP request timeout for Twilio API calls.
	Timeout time.Duration
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.AccountSID == "" {
		return fmt.Errorf("twilio account SID is required")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("twilio auth token is required")
	}
	if !strings.HasPrefix(c.FromNumber, "+") {
		return fmt.Errorf("twilio from number must be E.164, got %q", c.FromNumber)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("twilio timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Twilio sends SMS through the Twilio Messages API. It implements
// usecase/greet.Channel.
//
// A rejection Twilio reports about the message itself (bad number, blocked
// destination) comes back as a non-success DeliveryOutcome. Returned errors
// are reserved for transport faults: network, auth, and 5xx responses.
// Those also feed the circuit breaker, so a provider outage fails pending
// sends fast instead of burning every recipient's retry budget.
type Twilio struct {
	config         Config
	httpClient     *http.Client
	rateLimiter    *RateLimiter
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewTwilio creates a Twilio SMS channel from the given configuration.
func NewTwilio(config Config) (*Twilio, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("NewTwilio: %w", err)
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return &Twilio{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		// Long-code sending rate: 1 msg/s.
		rateLimiter:    NewRateLimiter(1.0, 1),
		circuitBreaker: circuitbreaker.New(circuitbreaker.SMSConfig()),
	}, nil
}

// Name identifies the channel in logs and delivery records.
func (t *Twilio) Name() string {
	return "twilio-sms"
}

// messageResponse is the subset of Twilio's Message resource the channel
// reads.
type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// apiError is Twilio's error document for non-2xx responses.
type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

// Send transmits one SMS. The outcome reports Twilio's verdict; a non-nil
// error means the attempt never reached a verdict.
func (t *Twilio) Send(ctx context.Context, phone, text string) (*greet.DeliveryOutcome, error) {
	if err := t.rateLimiter.Allow(ctx); err != nil {
		return nil, fmt.Errorf("Send: rate limiter: %w", err)
	}

	result, err := t.circuitBreaker.Execute(func() (interface{}, error) {
		return t.doSend(ctx, phone, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("sms transport circuit breaker open, request rejected",
				slog.String("service", "twilio"),
				slog.String("state", t.circuitBreaker.State().String()))
			return nil, fmt.Errorf("Send: sms transport unavailable: circuit breaker open")
		}
		return nil, err
	}

	return result.(*greet.DeliveryOutcome), nil
}

// doSend performs the actual API call without the circuit breaker.
func (t *Twilio) doSend(ctx context.Context, phone, text string) (*greet.DeliveryOutcome, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", t.config.FromNumber)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.config.BaseURL, t.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.SetBasicAuth(t.config.AccountSID, t.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	duration := time.Since(start)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var message messageResponse
		if err := json.Unmarshal(body, &message); err != nil {
			return nil, fmt.Errorf("decode message response: %w", err)
		}

		slog.Info("sms accepted by transport",
			slog.String("message_id", message.SID),
			slog.String("status", message.Status),
			slog.Duration("duration", duration))

		return &greet.DeliveryOutcome{
			Success:   true,
			MessageID: message.SID,
			Timestamp: time.Now(),
		}, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden:
		// Twilio rejected this particular message. The transport itself is
		// healthy, so report the verdict instead of erroring.
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err != nil {
			apiErr.Message = string(body)
		}

		slog.Warn("sms rejected by transport",
			slog.Int("status", resp.StatusCode),
			slog.Int("error_code", apiErr.Code),
			slog.String("error_message", apiErr.Message))

		return &greet.DeliveryOutcome{
			Success:     false,
			ErrorCode:   strconv.Itoa(apiErr.Code),
			Description: apiErr.Message,
			Timestamp:   time.Now(),
		}, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("twilio authentication failed with status %d: %s", resp.StatusCode, string(body))

	default:
		return nil, fmt.Errorf("twilio api error status %d: %s", resp.StatusCode, string(body))
	}
}

// Ping fetches the account resource to verify credentials and reachability.
func (t *Twilio) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", t.config.BaseURL, t.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("Ping: create http request: %w", err)
	}
	req.SetBasicAuth(t.config.AccountSID, t.config.AuthToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ping: execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Ping: twilio returned status %d", resp.StatusCode)
	}
	return nil
}
