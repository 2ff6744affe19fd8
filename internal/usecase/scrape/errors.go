// Package scrape provides the request orchestration use cases: picking a
// route, running a fetch with retries behind per-route circuit breakers, and
// scheduling batches of targets with bounded concurrency.
package scrape

import (
	"errors"
	"fmt"
	"time"

	"relaypool/internal/resilience/retry"
)

// Sentinel errors for orchestration operations.
var (
	// ErrAttemptsExhausted indicates that every allowed attempt for a target
	// failed with a retryable error.
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")

	// ErrPermanentFailure indicates a non-retryable failure. Further attempts
	// would see the same result, so the controller aborts immediately.
	ErrPermanentFailure = errors.New("permanent failure")

	// ErrServiceUnavailable indicates every selectable route was rejected by
	// its circuit breaker, so the request failed without any external call.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// RetryError reports the terminal failure of a retried request, including how
// many attempts were spent and the classification of the last failure.
type RetryError struct {
	Target   string
	Attempts int
	Elapsed  time.Duration
	Class    retry.Class
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s) in %s (%s): %v",
		e.Target, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Class, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }
