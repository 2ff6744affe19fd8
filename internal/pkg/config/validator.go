package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule checks a five-field cron expression against the same
// parser the worker scheduler uses, so anything accepted here also runs.
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("cron schedule is empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateTimezone checks an IANA timezone name. It fails for valid names
// too when the runtime image ships without tzdata, which is the failure
// worth catching before the first probe sweep fires at the wrong hour.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return fmt.Errorf("timezone is empty")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("timezone %q: %w", tz, err)
	}
	return nil
}

// ValidateDuration checks that d lies in [min, max].
func ValidateDuration(d, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("bad range: min %v > max %v", min, max)
	}
	if d < min || d > max {
		return fmt.Errorf("%v outside [%v, %v]", d, min, max)
	}
	return nil
}

// ValidateIntRange checks that v lies in [min, max].
func ValidateIntRange(v, min, max int) error {
	if min > max {
		return fmt.Errorf("bad range: min %d > max %d", min, max)
	}
	if v < min || v > max {
		return fmt.Errorf("%d outside [%d, %d]", v, min, max)
	}
	return nil
}

// ValidatePositiveDuration checks that d is strictly positive.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}
