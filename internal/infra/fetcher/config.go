// Package fetcher implements the outbound HTTP fetch capability. Requests are
// routed through the relay passed per call, or go out directly when none is
// given.
package fetcher

import (
	"fmt"
	"time"

	"relaypool/internal/pkg/config"
)

// Config holds the HTTP fetch settings.
type Config struct {
	// Timeout is the transport-level timeout for a single request. The
	// orchestrator applies its own per-attempt deadline on top of this.
	Timeout time.Duration

	// MaxBodySize caps the response body read, in bytes.
	MaxBodySize int64

	// MaxRedirects bounds redirect following.
	MaxRedirects int

	// DenyPrivateIPs blocks targets resolving to loopback, private, or
	// link-local addresses.
	DenyPrivateIPs bool

	// UserAgent is sent on every request.
	UserAgent string

	// RequestsPerSecond is the global outbound pacing limit shared by every
	// request through this fetcher, relayed or direct. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the pacing limiter's burst size.
	Burst int
}

// DefaultConfig returns production-ready fetch settings.
func DefaultConfig() Config {
	return Config{
		Timeout:           15 * time.Second,
		MaxBodySize:       10 * 1024 * 1024,
		MaxRedirects:      5,
		DenyPrivateIPs:    true,
		UserAgent:         "relaypool/1.0",
		RequestsPerSecond: 2,
		Burst:             4,
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxBodySize < 1024 || c.MaxBodySize > 100*1024*1024 {
		return fmt.Errorf("max body size must be between 1KB and 100MB, got %d", c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must be non-negative, got %f", c.RequestsPerSecond)
	}
	return nil
}

// LoadConfigFromEnv loads fetch settings from environment variables, falling
// back to defaults on missing or invalid values.
//
// Environment variables:
//   - FETCH_TIMEOUT: duration string (default: 15s)
//   - FETCH_MAX_BODY_SIZE: bytes (default: 10485760)
//   - FETCH_MAX_REDIRECTS: integer (default: 5)
//   - FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
//   - FETCH_USER_AGENT: string (default: "relaypool/1.0")
//   - FETCH_RATE_LIMIT: requests per second, integer (default: 2)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.Timeout = config.Duration("FETCH_TIMEOUT", cfg.Timeout, config.ValidatePositiveDuration).Value

	bodySize := config.Int("FETCH_MAX_BODY_SIZE", int(cfg.MaxBodySize), func(v int) error {
		return config.ValidateIntRange(v, 1024, 100*1024*1024)
	})
	cfg.MaxBodySize = int64(bodySize.Value)

	cfg.MaxRedirects = config.Int("FETCH_MAX_REDIRECTS", cfg.MaxRedirects, func(v int) error {
		return config.ValidateIntRange(v, 0, 10)
	}).Value

	cfg.DenyPrivateIPs = config.Bool("FETCH_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs).Value

	cfg.UserAgent = config.String("FETCH_USER_AGENT", cfg.UserAgent)

	rateLimit := config.Int("FETCH_RATE_LIMIT", int(cfg.RequestsPerSecond), func(v int) error {
		return config.ValidateIntRange(v, 0, 100)
	})
	cfg.RequestsPerSecond = float64(rateLimit.Value)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("LoadConfigFromEnv: %w", err)
	}
	return cfg, nil
}
