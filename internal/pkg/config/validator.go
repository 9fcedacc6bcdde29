package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule checks that the given string is a parseable standard
// five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateTimezone checks that the given string is a loadable IANA timezone
// name such as "UTC" or "America/New_York".
func ValidateTimezone(timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return nil
}

// ValidatePositiveDuration checks that the duration is strictly positive.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateIntRange returns a validator that checks the value is within
// [min, max] inclusive.
func ValidateIntRange(min, max int) func(int) error {
	return func(value int) error {
		if value < min || value > max {
			return fmt.Errorf("value %d out of range [%d, %d]", value, min, max)
		}
		return nil
	}
}
