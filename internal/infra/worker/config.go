// Package worker provides the operational shell around the greeting
// scheduler: configuration loading, health endpoints, and Prometheus
// metrics for cycle execution.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"birthday-courier/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker process: the cron
// schedule driving greeting cycles, per-cycle limits, and the local HTTP
// ports.
//
// Tunables load fail-open: an invalid value falls back to its default with
// a warning and a metrics increment, so a typo in one variable never keeps
// birthdays from going out. Secrets (API keys, tokens) are loaded elsewhere
// and fail closed.
type WorkerConfig struct {
	// CronSchedule is the five-field cron expression for greeting cycles.
	// Default: "0 9 * * *" (every day at 09:00 server-local).
	CronSchedule string

	// Timezone is the IANA timezone the cron schedule is evaluated in.
	// This only anchors when cycles fire; birthday matching always uses
	// each recipient's own timezone.
	Timezone string

	// RosterFreshness is how long a fetched roster stays fresh before the
	// next cycle re-fetches it.
	RosterFreshness time.Duration

	// GreetMaxConcurrent bounds how many matched recipients are processed
	// in parallel within one cycle.
	GreetMaxConcurrent int

	// CycleTimeout is the maximum duration for a single greeting cycle.
	CycleTimeout time.Duration

	// HealthPort is the port for the health check HTTP server.
	HealthPort int

	// MetricsPort is the port for the Prometheus metrics HTTP server.
	MetricsPort int
}

// DefaultConfig returns a WorkerConfig with production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:       "0 9 * * *",
		Timezone:           "UTC",
		RosterFreshness:    24 * time.Hour,
		GreetMaxConcurrent: 5,
		CycleTimeout:       30 * time.Minute,
		HealthPort:         9091,
		MetricsPort:        9090,
	}
}

// Validate checks every field and returns the aggregated failures.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.RosterFreshness); err != nil {
		errs = append(errs, fmt.Errorf("roster freshness: %w", err))
	}
	if err := config.ValidateIntRange(1, 50)(c.GreetMaxConcurrent); err != nil {
		errs = append(errs, fmt.Errorf("greet max concurrent: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CycleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}
	if err := config.ValidateIntRange(1024, 65535)(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(1024, 65535)(c.MetricsPort); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and fallback to defaults. Every fallback is logged and
// counted in the config metrics; the returned configuration is always
// valid.
//
// Environment variables:
//   - CRON_SCHEDULE: five-field cron expression (default: "0 9 * * *")
//   - CRON_TIMEZONE: IANA timezone for the schedule (default: "UTC")
//   - ROSTER_FRESHNESS: duration, e.g. "24h" (range: 1m-168h)
//   - GREET_MAX_CONCURRENT: integer 1-50 (default: 5)
//   - CYCLE_TIMEOUT: duration, e.g. "30m" (range: 1m-4h)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//   - WORKER_METRICS_PORT: integer 1024-65535 (default: 9090)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	fallbackApplied := false

	applyFallback := func(field string, warnings []string) {
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field)
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	schedule := config.LoadEnvStringValidated("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	if schedule.FallbackApplied {
		applyFallback("cron_schedule", schedule.Warnings)
	}

	timezone := config.LoadEnvStringValidated("CRON_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = timezone.Value
	if timezone.FallbackApplied {
		applyFallback("cron_timezone", timezone.Warnings)
	}

	freshness := config.LoadEnvDuration("ROSTER_FRESHNESS", cfg.RosterFreshness, func(d time.Duration) error {
		if d < time.Minute || d > 168*time.Hour {
			return fmt.Errorf("duration %v out of range [1m, 168h]", d)
		}
		return nil
	})
	cfg.RosterFreshness = freshness.Value
	if freshness.FallbackApplied {
		applyFallback("roster_freshness", freshness.Warnings)
	}

	concurrent := config.LoadEnvInt("GREET_MAX_CONCURRENT", cfg.GreetMaxConcurrent, config.ValidateIntRange(1, 50))
	cfg.GreetMaxConcurrent = concurrent.Value
	if concurrent.FallbackApplied {
		applyFallback("greet_max_concurrent", concurrent.Warnings)
	}

	cycleTimeout := config.LoadEnvDuration("CYCLE_TIMEOUT", cfg.CycleTimeout, func(d time.Duration) error {
		if d < time.Minute || d > 4*time.Hour {
			return fmt.Errorf("duration %v out of range [1m, 4h]", d)
		}
		return nil
	})
	cfg.CycleTimeout = cycleTimeout.Value
	if cycleTimeout.FallbackApplied {
		applyFallback("cycle_timeout", cycleTimeout.Warnings)
	}

	healthPort := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, config.ValidateIntRange(1024, 65535))
	cfg.HealthPort = healthPort.Value
	if healthPort.FallbackApplied {
		applyFallback("health_port", healthPort.Warnings)
	}

	metricsPort := config.LoadEnvInt("WORKER_METRICS_PORT", cfg.MetricsPort, config.ValidateIntRange(1024, 65535))
	cfg.MetricsPort = metricsPort.Value
	if metricsPort.FallbackApplied {
		applyFallback("metrics_port", metricsPort.Warnings)
	}

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg
}
