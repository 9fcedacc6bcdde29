package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"birthday-courier/internal/domain/entity"
	"birthday-courier/internal/resilience/circuitbreaker"
	"birthday-courier/internal/utils/text"
)

// OpenAI generates greetings using OpenAI's chat completion API.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         Config
}

// NewOpenAI creates an OpenAI greeting generator with the given API key.
func NewOpenAI(apiKey string, config Config) *OpenAI {
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}

	slog.Info("Initialized OpenAI composer",
		slog.String("model", config.Model),
		slog.Int("character_limit", config.CharacterLimit))

	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ComposerConfig("openai-api")),
		config:         config,
	}
}

// Compose generates a birthday greeting for the recipient in their language.
func (o *OpenAI) Compose(ctx context.Context, recipient *entity.Recipient) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	result, err := o.circuitBreaker.Execute(func() (interface{}, error) {
		return o.doCompose(ctx, recipient)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("openai api circuit breaker open, request rejected",
				slog.String("service", "openai-api"),
				slog.String("state", o.circuitBreaker.State().String()))
			return "", fmt.Errorf("openai api unavailable: circuit breaker open")
		}
		return "", err
	}

	return result.(string), nil
}

// doCompose performs the actual API call without the circuit breaker.
func (o *OpenAI) doCompose(ctx context.Context, recipient *entity.Recipient) (string, error) {
	prompt := buildPrompt(recipient, o.config.CharacterLimit)

	slog.InfoContext(ctx, "Starting greeting generation",
		slog.String("recipient_id", recipient.ID),
		slog.String("language", recipient.Language))

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Greeting generation failed",
			slog.String("recipient_id", recipient.ID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		slog.ErrorContext(ctx, "OpenAI API returned empty response",
			slog.Duration("duration", duration))
		return "", fmt.Errorf("openai api returned empty response")
	}

	greeting := resp.Choices[0].Message.Content
	length := text.CountRunes(greeting)

	slog.InfoContext(ctx, "Greeting generation completed",
		slog.String("recipient_id", recipient.ID),
		slog.Int("length", length),
		slog.Bool("within_limit", length <= o.config.CharacterLimit),
		slog.Duration("duration", duration))

	return greeting, nil
}

// Ping lists models to verify the API key is accepted.
func (o *OpenAI) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	if _, err := o.client.ListModels(ctx); err != nil {
		return fmt.Errorf("Ping: openai api unreachable: %w", err)
	}
	return nil
}
