// Package requestid assigns every request an ID used to correlate relay
// orchestration log lines, and echoes it back via the X-Request-ID header.
package requestid

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the ID on requests and responses.
const RequestIDHeader = "X-Request-ID"

// maxIDLength bounds caller-supplied IDs so a hostile header cannot bloat logs.
const maxIDLength = 128

type contextKey struct{}

// FromContext returns the request ID stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// usable reports whether a caller-supplied ID is safe to adopt: non-empty,
// bounded, and free of control characters that would corrupt log lines.
func usable(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r < 0x20 || r == 0x7f
	})
}

// Middleware adopts the caller's X-Request-ID when it is usable, otherwise
// generates a fresh UUID. The ID lands in the request context and on the
// response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !usable(id) {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
