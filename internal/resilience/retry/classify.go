// Package retry provides error classification and backoff computation for the
// request orchestration loop. Classification decides whether an attempt is
// worth repeating; backoff decides how long to pause before it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Class is the retry category of a failed attempt.
type Class string

const (
	// ClassNone marks a successful attempt.
	ClassNone Class = "none"

	// ClassTransient covers network hiccups, timeouts and 5xx responses.
	// Safe to retry with backoff.
	ClassTransient Class = "transient"

	// ClassRateLimit covers explicit throttling signals. Retried with a
	// steeper backoff multiplier than generic transient failures.
	ClassRateLimit Class = "rate_limit"

	// ClassPermanent covers authentication failures and blocking challenges.
	// Retrying is pointless; the attempt loop aborts immediately.
	ClassPermanent Class = "permanent"

	// ClassUnavailable is a synthetic category for requests rejected by an
	// open circuit breaker. No external call happens; the request fails
	// without consuming a fetch attempt. Classify never produces this class,
	// the orchestration loop raises it directly.
	ClassUnavailable Class = "service_unavailable"
)

// Retryable reports whether an attempt in this class may be repeated.
func (c Class) Retryable() bool {
	return c == ClassTransient || c == ClassRateLimit
}

// FetchError is a structured error produced by the fetch capability. It
// carries an explicit classification where the transport knows one, so the
// substring fallback in Classify is only needed for opaque errors.
type FetchError struct {
	Class      Class
	StatusCode int
	Msg        string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Msg)
	}
	return e.Msg
}

// Classify maps an attempt error to its retry class. It prefers structured
// information (FetchError class, HTTP status, net/syscall error types) and
// falls back to substring matching on the message for opaque errors.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	// A cancelled caller must not trigger further attempts; a deadline on a
	// single attempt is an ordinary timeout.
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		if fetchErr.Class != "" && fetchErr.Class != ClassNone {
			return fetchErr.Class
		}
		if fetchErr.StatusCode != 0 {
			return classifyStatus(fetchErr.StatusCode)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return ClassTransient
	}

	return classifyMessage(err.Error())
}

// classifyStatus maps an HTTP status code to a retry class.
func classifyStatus(code int) Class {
	switch {
	case code == http.StatusTooManyRequests:
		return ClassRateLimit
	case code == http.StatusRequestTimeout:
		return ClassTransient
	case code >= 500:
		return ClassTransient
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		code == http.StatusProxyAuthRequired,
		code == http.StatusUnavailableForLegalReasons:
		return ClassPermanent
	case code >= 400:
		// Remaining 4xx responses will not change on retry.
		return ClassPermanent
	default:
		return ClassTransient
	}
}

// classifyMessage is the fallback adapter for opaque error strings.
func classifyMessage(msg string) Class {
	lower := strings.ToLower(msg)

	permanentMarkers := []string{
		"captcha", "blocked", "forbidden", "unauthorized",
		"access denied", "verification required", "login required",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(lower, marker) {
			return ClassPermanent
		}
	}

	rateLimitMarkers := []string{
		"too many requests", "rate limit", "throttl", "429",
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return ClassRateLimit
		}
	}

	// Unknown errors default to transient so a flaky relay still gets its
	// bounded retries.
	return ClassTransient
}
