package entity

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// HealthStatus is the result of the most recent health probe for a relay.
type HealthStatus string

const (
	HealthUnknown HealthStatus = "unknown"
	HealthPassed  HealthStatus = "passed"
	HealthFailed  HealthStatus = "failed"
)

// DirectRoute is the sentinel route key used when a request is sent without
// a relay. Circuit breaker state for direct connections is tracked under it.
const DirectRoute = "direct"

// Relay represents an upstream relay (proxy) through which outbound requests
// may be routed, together with its accumulated health statistics.
//
// SuccessRate is an exponential moving average kept in the range [0, 100].
// A relay whose SuccessRate drops to or below the configured minimum is
// deactivated; a later successful request reactivates it (self-healing).
type Relay struct {
	ID       string
	Host     string
	Port     int
	Username string
	Password string

	Active             bool
	SuccessRate        float64
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	AvgResponseTimeMs  float64
	LastUsedAt         *time.Time
	LastErrorMessage   *string
	HealthStatus       HealthStatus
}

// Addr returns the host:port form of the relay address. It doubles as the
// route key for circuit breaker tracking.
func (r *Relay) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// ProxyURL builds the URL used to route an HTTP request through the relay,
// including credentials when configured.
func (r *Relay) ProxyURL() *url.URL {
	u := &url.URL{
		Scheme: "http",
		Host:   r.Addr(),
	}
	if r.Username != "" {
		u.User = url.UserPassword(r.Username, r.Password)
	}
	return u
}

// Validate checks the relay's structural invariants.
func (r *Relay) Validate() error {
	if r.Host == "" {
		return &ValidationError{Field: "host", Message: "must not be empty"}
	}
	if r.Port <= 0 || r.Port > 65535 {
		return &ValidationError{Field: "port", Message: fmt.Sprintf("out of range: %d", r.Port)}
	}
	if r.SuccessRate < 0 || r.SuccessRate > 100 {
		return &ValidationError{Field: "success_rate", Message: fmt.Sprintf("outside [0,100]: %g", r.SuccessRate)}
	}
	switch r.HealthStatus {
	case HealthUnknown, HealthPassed, HealthFailed, "":
	default:
		return &ValidationError{Field: "health_status", Message: fmt.Sprintf("unknown value: %s", r.HealthStatus)}
	}
	return nil
}

// ClampSuccessRate forces SuccessRate back into [0, 100]. Callers that adjust
// the rate arithmetically use it to preserve the invariant.
func (r *Relay) ClampSuccessRate() {
	if r.SuccessRate < 0 {
		r.SuccessRate = 0
	}
	if r.SuccessRate > 100 {
		r.SuccessRate = 100
	}
}
