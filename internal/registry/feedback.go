package registry

import (
	"strings"
	"time"

	"relaypool/internal/domain/entity"
)

// PenaltyTable maps failure severity groups to success-rate penalties.
// Connection-level and blocking failures hit hardest, content-level failures
// barely move the needle.
type PenaltyTable struct {
	Connection float64
	Timeout    float64
	RateLimit  float64
	Content    float64
	Unknown    float64
}

// FeedbackConfig holds the outcome feedback tuning. The exact constants are
// heuristics; the contract is the shape: success-dominant EMA smoothing and
// monotonic penalties by severity.
type FeedbackConfig struct {
	// SuccessAlpha is the EMA smoothing factor pulling the rate toward 100
	// on success.
	SuccessAlpha float64

	// FailureAlpha scales the severity penalty subtracted on failure.
	FailureAlpha float64

	// ResponseTimeAlpha is the EMA smoothing factor for average response time.
	ResponseTimeAlpha float64

	// MinSuccessRate is the deactivation floor: a relay whose rate falls to
	// or below it is marked inactive.
	MinSuccessRate float64

	Penalties PenaltyTable
}

// DefaultFeedbackConfig returns the default feedback tuning.
func DefaultFeedbackConfig() FeedbackConfig {
	return FeedbackConfig{
		SuccessAlpha:      0.1,
		FailureAlpha:      0.15,
		ResponseTimeAlpha: 0.2,
		MinSuccessRate:    25,
		Penalties: PenaltyTable{
			Connection: 25,
			Timeout:    18,
			RateLimit:  12,
			Content:    5,
			Unknown:    8,
		},
	}
}

// applySuccess moves the relay's health toward full score. A succeeding relay
// is reactivated even if previously deactivated (self-healing).
func (c FeedbackConfig) applySuccess(relay *entity.Relay, responseTime time.Duration, now time.Time) {
	relay.SuccessRate += (100 - relay.SuccessRate) * c.SuccessAlpha
	relay.ClampSuccessRate()

	relay.TotalRequests++
	relay.SuccessfulRequests++
	relay.Active = true
	relay.HealthStatus = entity.HealthPassed
	relay.LastUsedAt = &now
	relay.LastErrorMessage = nil

	ms := float64(responseTime.Milliseconds())
	if ms > 0 {
		if relay.AvgResponseTimeMs == 0 {
			relay.AvgResponseTimeMs = ms
		} else {
			relay.AvgResponseTimeMs = (1-c.ResponseTimeAlpha)*relay.AvgResponseTimeMs + c.ResponseTimeAlpha*ms
		}
	}
}

// applyFailure subtracts a severity-scaled penalty and deactivates the relay
// once its rate falls through the floor.
func (c FeedbackConfig) applyFailure(relay *entity.Relay, errorMessage string, now time.Time) {
	penalty := c.penaltyFor(errorMessage)
	relay.SuccessRate -= penalty * c.FailureAlpha
	relay.ClampSuccessRate()

	relay.TotalRequests++
	relay.FailedRequests++
	relay.HealthStatus = entity.HealthFailed
	relay.LastUsedAt = &now
	if errorMessage != "" {
		msg := errorMessage
		relay.LastErrorMessage = &msg
	}
	relay.Active = relay.SuccessRate > c.MinSuccessRate
}

// penaltyFor grades an error message by severity. This is intentionally a
// message-level heuristic: the retry classifier decides whether to retry,
// this table decides how hard the relay's score drops.
func (c FeedbackConfig) penaltyFor(errorMessage string) float64 {
	msg := strings.ToLower(errorMessage)
	if msg == "" {
		return c.Penalties.Unknown
	}

	connectionMarkers := []string{
		"connection refused", "no route to host", "proxy authentication",
		"tunnel", "blocked", "forbidden", "unauthorized", "access denied",
	}
	for _, marker := range connectionMarkers {
		if strings.Contains(msg, marker) {
			return c.Penalties.Connection
		}
	}

	timeoutMarkers := []string{
		"timeout", "timed out", "deadline exceeded", "connection reset", "eof",
	}
	for _, marker := range timeoutMarkers {
		if strings.Contains(msg, marker) {
			return c.Penalties.Timeout
		}
	}

	rateLimitMarkers := []string{
		"captcha", "too many requests", "rate limit", "throttl", "429",
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return c.Penalties.RateLimit
		}
	}

	contentMarkers := []string{
		"parse", "unexpected content", "empty body", "not found", "404",
	}
	for _, marker := range contentMarkers {
		if strings.Contains(msg, marker) {
			return c.Penalties.Content
		}
	}

	return c.Penalties.Unknown
}
