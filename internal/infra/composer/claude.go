package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"birthday-courier/internal/domain/entity"
	"birthday-courier/internal/resilience/circuitbreaker"
	"birthday-courier/internal/utils/text"
)

// Claude generates greetings using Anthropic's Claude API. A circuit breaker
// shields the API across recipients; attempt-level retry belongs to the
// caller, so a tripped breaker fails all pending generations fast instead of
// hammering a degraded upstream.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         Config
}

// NewClaude creates a Claude greeting generator with the given API key.
func NewClaude(apiKey string, config Config) *Claude {
	if config.Model == "" {
		config.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	slog.Info("Initialized Claude composer",
		slog.String("model", config.Model),
		slog.Int("character_limit", config.CharacterLimit))

	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ComposerConfig("claude-api")),
		config:         config,
	}
}

// Compose generates a birthday greeting for the recipient in their language.
func (c *Claude) Compose(ctx context.Context, recipient *entity.Recipient) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doCompose(ctx, recipient)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("claude api circuit breaker open, request rejected",
				slog.String("service", "claude-api"),
				slog.String("state", c.circuitBreaker.State().String()))
			return "", fmt.Errorf("claude api unavailable: circuit breaker open")
		}
		return "", err
	}

	return result.(string), nil
}

// doCompose performs the actual API call without the circuit breaker.
func (c *Claude) doCompose(ctx context.Context, recipient *entity.Recipient) (string, error) {
	requestID := uuid.New().String()
	prompt := buildPrompt(recipient, c.config.CharacterLimit)

	slog.InfoContext(ctx, "Starting greeting generation",
		slog.String("request_id", requestID),
		slog.String("recipient_id", recipient.ID),
		slog.String("language", recipient.Language))

	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Greeting generation failed",
			slog.String("request_id", requestID),
			slog.String("recipient_id", recipient.ID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		slog.ErrorContext(ctx, "Claude API returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		slog.ErrorContext(ctx, "Claude API returned unexpected response type",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	greeting := textBlock.Text
	length := text.CountRunes(greeting)

	slog.InfoContext(ctx, "Greeting generation completed",
		slog.String("request_id", requestID),
		slog.String("recipient_id", recipient.ID),
		slog.Int("length", length),
		slog.Bool("within_limit", length <= c.config.CharacterLimit),
		slog.Duration("duration", duration))

	return greeting, nil
}

// Ping sends a minimal request to verify the API key and model are usable.
func (c *Claude) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock("ping"),
			),
		},
	})
	if err != nil {
		return fmt.Errorf("Ping: claude api unreachable: %w", err)
	}
	return nil
}
