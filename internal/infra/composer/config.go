// Package composer provides greeting message generators. It includes
// adapters for Claude (Anthropic) and OpenAI APIs with circuit breaking,
// plus a static template generator that needs no upstream at all.
package composer

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"birthday-courier/internal/usecase/greet"
)

// Composer type identifiers accepted in COMPOSER_TYPE.
const (
	TypeClaude   = "claude"
	TypeOpenAI   = "openai"
	TypeTemplate = "template"
)

// Config holds shared generator settings.
type Config struct {
	// Type selects the generator implementation: claude, openai, or template.
	Type string

	// CharacterLimit is the soft upper bound the generator is asked to stay
	// under. Greetings go out as SMS, so the default fits a couple of
	// segments.
	CharacterLimit int

	// Model is the API model identifier. Empty selects the adapter default.
	Model string

	// MaxTokens caps the API response size.
	MaxTokens int

	// Timeout is the maximum duration for a single generation API call.
	Timeout time.Duration
}

// LoadConfig loads generator configuration from environment variables.
// An out-of-range character limit falls back to the default with a warning.
//
// Environment variables:
//   - COMPOSER_TYPE: claude (default), openai, or template
//   - COMPOSER_CHAR_LIMIT: soft message length bound (default: 300, range: 50-1000)
//   - COMPOSER_MODEL: API model override
func LoadConfig() Config {
	const (
		defaultCharLimit = 300
		minCharLimit     = 50
		maxCharLimit     = 1000
	)

	charLimit := defaultCharLimit

	if envLimit := os.Getenv("COMPOSER_CHAR_LIMIT"); envLimit != "" {
		parsed, err := strconv.Atoi(envLimit)
		if err != nil {
			slog.Warn("Invalid COMPOSER_CHAR_LIMIT format, using default",
				slog.String("value", envLimit),
				slog.Int("default", defaultCharLimit),
				slog.String("error", err.Error()))
		} else if parsed < minCharLimit || parsed > maxCharLimit {
			slog.Warn("COMPOSER_CHAR_LIMIT out of valid range, using default",
				slog.Int("value", parsed),
				slog.Int("min", minCharLimit),
				slog.Int("max", maxCharLimit),
				slog.Int("default", defaultCharLimit))
		} else {
			charLimit = parsed
		}
	}

	composerType := os.Getenv("COMPOSER_TYPE")
	if composerType == "" {
		composerType = TypeClaude
	}

	return Config{
		Type:           composerType,
		CharacterLimit: charLimit,
		Model:          os.Getenv("COMPOSER_MODEL"),
		MaxTokens:      1024,
		Timeout:        60 * time.Second,
	}
}

// New builds the configured generator. API-backed generators read their key
// from the environment and fail fast when it is missing.
func New(config Config) (greet.Composer, error) {
	switch config.Type {
	case TypeClaude:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("New: ANTHROPIC_API_KEY is required for composer type %q", config.Type)
		}
		return NewClaude(apiKey, config), nil
	case TypeOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("New: OPENAI_API_KEY is required for composer type %q", config.Type)
		}
		return NewOpenAI(apiKey, config), nil
	case TypeTemplate:
		return NewTemplate(os.Getenv("GREETING_TEMPLATES"))
	default:
		return nil, fmt.Errorf("New: unknown composer type %q", config.Type)
	}
}
