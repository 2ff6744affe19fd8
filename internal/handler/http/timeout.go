package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"relaypool/internal/handler/http/respond"
)

var errRequestTimeout = errors.New("request timeout")

// Timeout caps the wall-clock time of a request. The handler runs with a
// deadline-bearing context; if it misses the deadline the client gets a 504
// and any late writes from the handler goroutine are discarded.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-finished:
			case <-ctx.Done():
				if gw.abandon() {
					respond.Error(w, http.StatusGatewayTimeout, errRequestTimeout)
				}
				<-finished
			}
		})
	}
}

// guardedWriter serializes writes between the handler goroutine and the
// timeout path. Once abandoned, handler writes report http.ErrHandlerTimeout.
type guardedWriter struct {
	http.ResponseWriter
	mu        sync.Mutex
	started   bool
	abandoned bool
}

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.abandoned || g.started {
		return
	}
	g.started = true
	g.ResponseWriter.WriteHeader(code)
}

func (g *guardedWriter) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.abandoned {
		return 0, http.ErrHandlerTimeout
	}
	if !g.started {
		g.started = true
		g.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return g.ResponseWriter.Write(p)
}

// abandon blocks further handler writes and reports whether the timeout path
// may still write the 504 itself.
func (g *guardedWriter) abandon() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.abandoned = true
	return !g.started
}
