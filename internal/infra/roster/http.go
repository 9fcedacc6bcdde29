// Package roster provides the HTTP adapter for the recipient roster
// endpoint: an authenticated JSON document listing everyone the service
// greets.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	usecase "birthday-courier/internal/usecase/roster"
)

// Config contains configuration for the roster HTTP endpoint.
type Config struct {
	// URL is the roster endpoint returning the full recipient list as JSON.
	URL string

	// Token is the bearer token presented on every request.
	Token string

	// Timeout is the HTTP request timeout for roster calls.
	Timeout time.Duration
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("roster URL is required")
	}
	if c.Token == "" {
		return fmt.Errorf("roster token is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("roster timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// HTTPProvider fetches the recipient roster over HTTP. It implements
// usecase/roster.Provider.
type HTTPProvider struct {
	config     Config
	httpClient *http.Client
}

// NewHTTPProvider creates a roster provider for the configured endpoint.
func NewHTTPProvider(config Config) (*HTTPProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("NewHTTPProvider: %w", err)
	}
	return &HTTPProvider{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// maxErrorBodyBytes caps how much of an error response body is read for
// logging and error messages.
const maxErrorBodyBytes = 4 << 10

// Fetch retrieves the complete roster. Any non-2xx status or malformed
// payload is an error; the caller's cache keeps serving its previous list.
func (p *HTTPProvider) Fetch(ctx context.Context) ([]usecase.RawRow, error) {
	requestID := uuid.New().String()

	slog.Info("fetching recipient roster",
		slog.String("request_id", requestID),
		slog.String("url", p.config.URL))

	resp, err := p.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		slog.Error("roster endpoint returned error status",
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return nil, fmt.Errorf("Fetch: roster endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var rows []usecase.RawRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("Fetch: decode roster payload: %w", err)
	}

	slog.Info("recipient roster fetched",
		slog.String("request_id", requestID),
		slog.Int("rows", len(rows)))

	return rows, nil
}

// Ping verifies the endpoint is reachable and the token is accepted. The
// body is discarded; only the status matters.
func (p *HTTPProvider) Ping(ctx context.Context) error {
	resp, err := p.get(ctx)
	if err != nil {
		return fmt.Errorf("Ping: execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Ping: roster endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) get(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.Token)
	req.Header.Set("Accept", "application/json")
	return p.httpClient.Do(req)
}
