package retry

import (
	"math/rand"
	"time"
)

// BackoffConfig holds the configuration for pre-attempt delays.
type BackoffConfig struct {
	// BaseDelay is the delay before the first attempt. Every request pauses
	// at least this long, which paces outbound traffic like a careful human
	// operator rather than a burst of automation.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// Jitter is the upper bound of the uniform random noise added to every
	// delay to avoid synchronized retry storms.
	Jitter time.Duration

	// TransientMultiplier scales the delay after a generic transient failure.
	TransientMultiplier float64

	// RateLimitMultiplier scales the delay after an explicit throttling
	// signal. Steeper than TransientMultiplier so a throttled route cools off.
	RateLimitMultiplier float64
}

// DefaultBackoffConfig returns the default backoff tuning.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseDelay:           500 * time.Millisecond,
		MaxDelay:            30 * time.Second,
		Jitter:              400 * time.Millisecond,
		TransientMultiplier: 2.0,
		RateLimitMultiplier: 3.0,
	}
}

// Delay computes the pre-attempt delay for the given 1-based attempt index.
// prior is the classification of the previous attempt's failure (ClassNone
// for the first attempt). rng injects the jitter source; a nil rng disables
// jitter, which keeps tests deterministic.
func (c BackoffConfig) Delay(attempt int, prior Class, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	multiplier := c.TransientMultiplier
	if prior == ClassRateLimit {
		multiplier = c.RateLimitMultiplier
	}

	delay := float64(c.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		if delay >= float64(c.MaxDelay) {
			delay = float64(c.MaxDelay)
			break
		}
	}

	d := time.Duration(delay)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	if rng != nil && c.Jitter > 0 {
		d += time.Duration(rng.Int63n(int64(c.Jitter)))
	}
	return d
}
