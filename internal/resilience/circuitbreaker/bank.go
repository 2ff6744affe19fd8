// Package circuitbreaker tracks per-route failure state for outbound requests.
// Routes are relay addresses or the direct-connection sentinel; each route gets
// its own breaker built on github.com/sony/gobreaker so repeated failures stop
// traffic to that route until a cooldown trial succeeds.
package circuitbreaker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"relaypool/internal/observability/metrics"
)

// ErrOpen is returned by Allow while a route's breaker rejects requests.
// Callers translate it into a service-unavailable outcome without contacting
// the route.
var ErrOpen = errors.New("route circuit open")

// Config holds the configuration shared by all breakers in a bank.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens a
	// route.
	FailureThreshold uint32

	// OpenTimeout is how long an open route rejects requests before the next
	// inspection moves it to half-open.
	OpenTimeout time.Duration

	// HalfOpenMaxRequests is the number of trial requests allowed through in
	// half-open state. The orchestrator uses 1: a single probe decides
	// whether the route recovers or re-opens.
	HalfOpenMaxRequests uint32
}

// DefaultConfig returns the default breaker tuning.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		OpenTimeout:         60 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// Bank owns one circuit breaker per route key, created lazily on first use.
// State is process-local only; it is not persisted across restarts.
type Bank struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.TwoStepCircuitBreaker
}

// NewBank creates an empty breaker bank.
func NewBank(cfg Config) *Bank {
	return &Bank{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.TwoStepCircuitBreaker),
	}
}

// newBreaker builds a gobreaker two-step breaker with the bank's settings.
// Interval stays zero so closed-state counts are never cleared: the trip
// condition is strictly "N consecutive failures", not a windowed ratio.
func (b *Bank) newBreaker(route string) *gobreaker.TwoStepCircuitBreaker {
	threshold := b.cfg.FailureThreshold
	return gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        route,
		MaxRequests: b.cfg.HalfOpenMaxRequests,
		Timeout:     b.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("route", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.RecordBreakerTransition(name, to.String())
		},
	})
}

// breaker returns the breaker for a route, creating it on first use. Unseen
// routes therefore start closed with zero failures.
func (b *Bank) breaker(route string) *gobreaker.TwoStepCircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.breakers[route]
	if !ok {
		cb = b.newBreaker(route)
		b.breakers[route] = cb
	}
	return cb
}

// Allow asks whether a request to the route may proceed. On success it
// returns a done callback that must be invoked with the attempt's outcome;
// the callback drives the closed/open/half-open transitions. While the route
// is open (or its single half-open trial is already taken) Allow returns
// ErrOpen and no request must be made.
func (b *Bank) Allow(route string) (func(success bool), error) {
	done, err := b.breaker(route).Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("route %q: %w", route, ErrOpen)
		}
		return nil, fmt.Errorf("route %q: %w", route, err)
	}
	return done, nil
}

// RecordSuccess registers a successful request against the route without a
// prior Allow call. Used by administrative flows; the orchestrator itself
// reports through the Allow callback. Reports land only while the route is
// closed: in half-open the single trial slot belongs to the orchestrated
// attempt, and an open route is rejecting traffic anyway.
func (b *Bank) RecordSuccess(route string) {
	b.recordOutcome(route, true)
}

// RecordFailure registers a failed request against the route without a prior
// Allow call. Like RecordSuccess it only applies to closed routes.
func (b *Bank) RecordFailure(route string) {
	b.recordOutcome(route, false)
}

func (b *Bank) recordOutcome(route string, success bool) {
	cb := b.breaker(route)
	if cb.State() != gobreaker.StateClosed {
		return
	}
	if done, err := cb.Allow(); err == nil {
		done(success)
	}
}

// State returns the route's current breaker state. An open route whose
// cooldown has elapsed reports half-open, matching what the next Allow call
// would decide.
func (b *Bank) State(route string) gobreaker.State {
	return b.breaker(route).State()
}

// Reset administratively clears one route back to closed with zero failures.
func (b *Bank) Reset(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.breakers[route]; ok {
		b.breakers[route] = b.newBreaker(route)
	}
}

// ResetAll administratively clears every known route back to closed state.
func (b *Bank) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for route := range b.breakers {
		b.breakers[route] = b.newBreaker(route)
	}
}

// Routes returns the route keys seen so far, in no particular order.
func (b *Bank) Routes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	routes := make([]string, 0, len(b.breakers))
	for route := range b.breakers {
		routes = append(routes, route)
	}
	return routes
}

// OpenCount returns the number of routes currently rejecting requests.
func (b *Bank) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	open := 0
	for _, cb := range b.breakers {
		if cb.State() == gobreaker.StateOpen {
			open++
		}
	}
	return open
}
