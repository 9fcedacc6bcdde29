// Package config provides reusable helpers for loading configuration values
// from environment variables with validation and fallback to defaults.
// Tunables fail open (invalid values fall back with a warning); secrets are
// the caller's responsibility and fail closed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadResult represents the result of loading a single configuration value.
// Warnings carry one message per fallback applied so the caller can log them.
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString loads a string from an environment variable, returning the
// default when the variable is unset or empty. No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvStringValidated loads a string with validation and automatic
// fallback to the default when validation fails.
func LoadEnvStringValidated(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return LoadResult[string]{Value: defaultValue}
	}

	if err := validator(raw); err != nil {
		return LoadResult[string]{
			Value:           defaultValue,
			Warnings:        []string{fmt.Sprintf("%s=%q is invalid (%v), using default %q", envKey, raw, err, defaultValue)},
			FallbackApplied: true,
		}
	}

	return LoadResult[string]{Value: raw}
}

// LoadEnvDuration loads a time.Duration with validation and fallback.
// The value must parse with time.ParseDuration (e.g. "30m", "24h").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return LoadResult[time.Duration]{Value: defaultValue}
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return LoadResult[time.Duration]{
			Value:           defaultValue,
			Warnings:        []string{fmt.Sprintf("%s=%q is not a duration, using default %v", envKey, raw, defaultValue)},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return LoadResult[time.Duration]{
				Value:           defaultValue,
				Warnings:        []string{fmt.Sprintf("%s=%v is invalid (%v), using default %v", envKey, parsed, err, defaultValue)},
				FallbackApplied: true,
			}
		}
	}

	return LoadResult[time.Duration]{Value: parsed}
}

// LoadEnvInt loads an int with validation and fallback.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return LoadResult[int]{Value: defaultValue}
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return LoadResult[int]{
			Value:           defaultValue,
			Warnings:        []string{fmt.Sprintf("%s=%q is not an integer, using default %d", envKey, raw, defaultValue)},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return LoadResult[int]{
				Value:           defaultValue,
				Warnings:        []string{fmt.Sprintf("%s=%d is invalid (%v), using default %d", envKey, parsed, err, defaultValue)},
				FallbackApplied: true,
			}
		}
	}

	return LoadResult[int]{Value: parsed}
}

// LoadEnvBool loads a bool from an environment variable. Only "true" and
// "false" (case-sensitive) are accepted; anything else yields the default.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	raw := os.Getenv(envKey)
	switch raw {
	case "":
		return LoadResult[bool]{Value: defaultValue}
	case "true":
		return LoadResult[bool]{Value: true}
	case "false":
		return LoadResult[bool]{Value: false}
	default:
		return LoadResult[bool]{
			Value:           defaultValue,
			Warnings:        []string{fmt.Sprintf("%s=%q is not a boolean, using default %t", envKey, raw, defaultValue)},
			FallbackApplied: true,
		}
	}
}
