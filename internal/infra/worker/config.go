package worker

import (
	"fmt"
	"log/slog"
	"time"

	"relaypool/internal/pkg/config"
)

// WorkerConfig holds the runtime settings for the relay probe worker.
//
// Configuration sources (in order of precedence):
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (from DefaultConfig)
//
// Loading follows the fail-open strategy: an invalid value falls back to the
// default with a warning instead of refusing to start.
type WorkerConfig struct {
	// CronSchedule is the cron expression for the periodic relay probe.
	// Default: "*/15 * * * *" (every 15 minutes)
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Default: "UTC"
	Timezone string

	// ProbeMaxConcurrent is the maximum number of relays probed at once.
	// Default: 5
	ProbeMaxConcurrent int

	// ProbeTimeout is the maximum duration for a full probe sweep.
	// Default: 5 minutes
	ProbeTimeout time.Duration

	// HealthPort is the port for the liveness/readiness HTTP server.
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:       "*/15 * * * *",
		Timezone:           "UTC",
		ProbeMaxConcurrent: 5,
		ProbeTimeout:       5 * time.Minute,
		HealthPort:         9091,
	}
}

// Validate checks every field of the configuration.
//
// Rules:
//   - CronSchedule: valid cron expression (robfig/cron parser)
//   - Timezone: valid IANA timezone name (time.LoadLocation)
//   - ProbeMaxConcurrent: between 1 and 50
//   - ProbeTimeout: positive
//   - HealthPort: between 1024 and 65535
func (c *WorkerConfig) Validate() error {
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		return fmt.Errorf("invalid CronSchedule: %w", err)
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		return fmt.Errorf("invalid Timezone: %w", err)
	}
	if err := config.ValidateIntRange(c.ProbeMaxConcurrent, 1, 50); err != nil {
		return fmt.Errorf("invalid ProbeMaxConcurrent: %w", err)
	}
	if err := config.ValidatePositiveDuration(c.ProbeTimeout); err != nil {
		return fmt.Errorf("invalid ProbeTimeout: %w", err)
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		return fmt.Errorf("invalid HealthPort: %w", err)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment variables
// with validation and automatic fallback to defaults on failure.
//
// Environment variables:
//   - PROBE_CRON_SCHEDULE: cron expression (default: "*/15 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - PROBE_MAX_CONCURRENT: integer 1-50 (default: 5)
//   - PROBE_TIMEOUT: duration string, e.g., "5m" (default: 5 minutes)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//
// Every fallback is logged and counted in the worker metrics. The returned
// configuration is always valid; the error is always nil and exists only to
// keep the conventional constructor shape.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fellback := false

	warn := func(field, warning string) {
		fellback = true
		metrics.Invalid(field)
		metrics.Fallback(field)
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	sched := config.Validated("PROBE_CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = sched.Value
	if sched.Fellback {
		warn("cron_schedule", sched.Warning)
	}

	tz := config.Validated("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	if tz.Fellback {
		warn("timezone", tz.Warning)
	}

	conc := config.Int("PROBE_MAX_CONCURRENT", cfg.ProbeMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.ProbeMaxConcurrent = conc.Value
	if conc.Fellback {
		warn("probe_max_concurrent", conc.Warning)
	}

	timeout := config.Duration("PROBE_TIMEOUT", cfg.ProbeTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, time.Hour)
	})
	cfg.ProbeTimeout = timeout.Value
	if timeout.Fellback {
		warn("probe_timeout", timeout.Warning)
	}

	port := config.Int("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = port.Value
	if port.Fellback {
		warn("health_port", port.Warning)
	}

	metrics.SetFallbackActive(fellback)
	metrics.Loaded()

	return &cfg, nil
}
