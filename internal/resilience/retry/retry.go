// Package retry provides bounded retry logic driven by an explicit delay
// schedule. It helps handle transient failures gracefully by automatically
// retrying failed operations while leaving the delay policy to the caller.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// Schedule holds the delay before each retry. Schedule[0] is waited
	// after the first failure, Schedule[1] after the second, and so on.
	// When the schedule is shorter than MaxAttempts-1, the last entry is
	// reused for the remaining waits.
	Schedule []time.Duration
}

// GenerationConfig returns the retry policy for message generation:
// 3 attempts with exponential 1s/2s/4s delays.
func GenerationConfig() Config {
	return Config{
		MaxAttempts: 3,
		Schedule:    []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// DeliveryConfig returns the retry policy for message delivery:
// 3 attempts with fixed 5-minute delays.
func DeliveryConfig() Config {
	return Config{
		MaxAttempts: 3,
		Schedule:    []time.Duration{5 * time.Minute},
	}
}

// Delay returns the wait that follows the given failed attempt (1-based),
// clamping to the last schedule entry when the schedule is shorter than the
// attempt count. An empty schedule means no wait.
func (c Config) Delay(attempt int) time.Duration {
	if len(c.Schedule) == 0 {
		return 0
	}
	if attempt > len(c.Schedule) {
		return c.Schedule[len(c.Schedule)-1]
	}
	return c.Schedule[attempt-1]
}

// Do executes fn with bounded retries, waiting the scheduled delay between
// attempts. It returns fn's result on the first success, or the last error
// wrapped after all attempts fail. Each failed attempt is logged with its
// attempt number. Context cancellation aborts the inter-attempt wait.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		// Context errors mean the caller gave up; do not burn more attempts.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}

		// No wait after the final attempt.
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Delay(attempt)
		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}
