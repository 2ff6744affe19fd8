package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"relaypool/internal/usecase/scrape"
)

// PoolStats reports the relay pool status on the health surface.
type PoolStats func(ctx context.Context) (*scrape.HealthMetrics, error)

// HealthServer serves the worker's probe endpoints:
//   - /health: liveness, always 200
//   - /health/ready: readiness, 200 once the worker is initialized
//   - /health/pool: relay pool summary (relays, breakers, cache age)
//
// The server shuts down gracefully when its context is canceled.
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady atomic.Bool
	stats   PoolStats
	server  *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

type poolResponse struct {
	TotalRelays   int64  `json:"total_relays"`
	ActiveRelays  int64  `json:"active_relays"`
	TrackedRoutes int    `json:"tracked_routes"`
	OpenBreakers  int    `json:"open_breakers"`
	CacheAgeMs    int64  `json:"cache_age_ms"`
	CacheState    string `json:"cache_state"`
}

// NewHealthServer creates a health server. stats may be nil, in which case
// /health/pool responds 503.
func NewHealthServer(addr string, logger *slog.Logger, stats PoolStats) *HealthServer {
	return &HealthServer{addr: addr, logger: logger, stats: stats}
}

// Start runs the server until the context is canceled. It returns
// http.ErrServerClosed on graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	mux.HandleFunc("/health/pool", h.handlePool)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		return http.ErrServerClosed

	case err := <-errChan:
		if err != http.ErrServerClosed {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady flips the readiness state reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func (h *HealthServer) handlePool(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "pool stats unavailable"})
		return
	}

	hm, err := h.stats(r.Context())
	if err != nil {
		h.logger.Error("failed to collect pool stats", slog.Any("error", err))
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "pool stats unavailable"})
		return
	}

	resp := poolResponse{
		TotalRelays:   hm.TotalRelays,
		ActiveRelays:  hm.ActiveRelays,
		TrackedRoutes: hm.TrackedRoutes,
		OpenBreakers:  hm.OpenBreakers,
		CacheState:    "empty",
	}
	if hm.CacheFresh {
		resp.CacheAgeMs = hm.CacheAge.Milliseconds()
		resp.CacheState = "cached"
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
