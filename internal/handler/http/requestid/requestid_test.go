package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithCapture(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var captured string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return captured, rec
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "fetch-7f3a")
	assert.Equal(t, "fetch-7f3a", FromContext(ctx))
	assert.Empty(t, FromContext(context.Background()))
}

func TestMiddleware_AdoptsCallerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/fetch", nil)
	req.Header.Set(RequestIDHeader, "client-batch-12")

	captured, rec := serveWithCapture(t, req)

	assert.Equal(t, "client-batch-12", captured)
	assert.Equal(t, "client-batch-12", rec.Header().Get(RequestIDHeader))
}

func TestMiddleware_GeneratesUUIDWhenMissing(t *testing.T) {
	captured, rec := serveWithCapture(t, httptest.NewRequest(http.MethodGet, "/relays", nil))

	require.NotEmpty(t, captured)
	_, err := uuid.Parse(captured)
	assert.NoError(t, err)
	assert.Equal(t, captured, rec.Header().Get(RequestIDHeader))
}

func TestMiddleware_RejectsUnusableIDs(t *testing.T) {
	for name, raw := range map[string]string{
		"control chars": "abc\x00def",
		"newline":       "evil\ninjected=line",
		"oversized":     strings.Repeat("x", maxIDLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/relays", nil)
			req.Header.Set(RequestIDHeader, raw)

			captured, _ := serveWithCapture(t, req)

			require.NotEqual(t, raw, captured)
			_, err := uuid.Parse(captured)
			assert.NoError(t, err, "unusable IDs are replaced with a UUID")
		})
	}
}

func TestMiddleware_UniquePerRequest(t *testing.T) {
	seen := make(map[string]struct{})
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[FromContext(r.Context())] = struct{}{}
	}))
	for i := 0; i < 10; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/relays", nil))
	}
	assert.Len(t, seen, 10)
}
