// Package registry is the source of truth for relay health. It layers a
// short-lived snapshot cache over the durable relay store so the hot
// selection path does not query storage on every request, and applies outcome
// feedback (EMA success rates, severity penalties) back into the store.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"relaypool/internal/domain/entity"
	"relaypool/internal/observability/metrics"
	"relaypool/internal/repository"
)

// Config holds the registry tuning.
type Config struct {
	// SnapshotTTL is the maximum age of a cached snapshot before the next
	// read goes back to storage.
	SnapshotTTL time.Duration

	// MinSuccessRate is the eligibility floor. Relays at or below it are
	// deactivated by the feedback loop and excluded from snapshots.
	MinSuccessRate float64
}

// DefaultConfig returns the default registry tuning.
func DefaultConfig() Config {
	return Config{
		SnapshotTTL:    60 * time.Second,
		MinSuccessRate: 25,
	}
}

// Snapshot is an immutable view of the eligible relays captured at a point
// in time. Selection runs against snapshots, never against live storage.
type Snapshot struct {
	Relays  []*entity.Relay
	TakenAt time.Time
}

// Age returns how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.TakenAt)
}

// Outcome is the raw result of one request through a relay, as reported by
// the retry controller or an external caller.
type Outcome struct {
	Success      bool
	ErrorMessage string
	ResponseTime time.Duration
}

// Registry owns the snapshot cache and the write-through health updates.
// Storage and clock are injected so instances never share hidden state.
type Registry struct {
	repo     repository.RelayRepository
	clock    clock.Clock
	cfg      Config
	feedback FeedbackConfig

	mu    sync.Mutex // guards cache
	cache *Snapshot

	recordMu sync.Mutex // serializes read-modify-write outcome updates
}

// New creates a registry over the given relay store.
func New(repo repository.RelayRepository, clk clock.Clock, cfg Config, feedback FeedbackConfig) *Registry {
	return &Registry{
		repo:     repo,
		clock:    clk,
		cfg:      cfg,
		feedback: feedback,
	}
}

// GetSnapshot returns the current snapshot of eligible relays and whether it
// was served from cache. A cached snapshot within the TTL is reused as-is.
// When the storage load fails but a cache exists, the stale cache is returned
// as a degraded fallback; without any cache the call fails with
// ErrStorageUnavailable.
func (r *Registry) GetSnapshot(ctx context.Context) (*Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if r.cache != nil && r.cache.Age(now) <= r.cfg.SnapshotTTL {
		metrics.RecordSnapshotRefresh("cache")
		return r.cache, true, nil
	}

	start := r.clock.Now()
	relays, err := r.repo.ListEligible(ctx, r.cfg.MinSuccessRate)
	metrics.RecordDBQuery("list_eligible", r.clock.Now().Sub(start))
	if err != nil {
		if r.cache != nil {
			slog.Warn("relay store load failed, serving stale snapshot",
				slog.Duration("cache_age", r.cache.Age(now)),
				slog.Any("error", err))
			metrics.RecordSnapshotRefresh("stale_fallback")
			return r.cache, true, nil
		}
		return nil, false, fmt.Errorf("GetSnapshot: %w: %w", entity.ErrStorageUnavailable, err)
	}

	r.cache = &Snapshot{Relays: relays, TakenAt: now}
	metrics.RecordSnapshotRefresh("storage")
	return r.cache, false, nil
}

// Invalidate drops the cached snapshot so the next read forces a fresh load.
// The feedback loop calls it after every recorded outcome.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()
}

// CacheAge returns the age of the cached snapshot, or false when no cache
// exists.
func (r *Registry) CacheAge() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		return 0, false
	}
	return r.cache.Age(r.clock.Now()), true
}

// RecordOutcome applies a success or failure signal to a relay: EMA success
// rate, counters, response time, activity flag, then write-through to storage
// and cache invalidation. The returned relay reflects the updated health.
func (r *Registry) RecordOutcome(ctx context.Context, relayID string, outcome Outcome) (*entity.Relay, error) {
	r.recordMu.Lock()
	defer r.recordMu.Unlock()

	relay, err := r.repo.Get(ctx, relayID)
	if err != nil {
		return nil, fmt.Errorf("RecordOutcome: %w", err)
	}

	now := r.clock.Now()
	if outcome.Success {
		r.feedback.applySuccess(relay, outcome.ResponseTime, now)
	} else {
		r.feedback.applyFailure(relay, outcome.ErrorMessage, now)
	}

	if err := r.repo.UpdateHealth(ctx, relay); err != nil {
		return nil, fmt.Errorf("RecordOutcome: %w", err)
	}
	r.Invalidate()

	slog.Debug("relay outcome recorded",
		slog.String("relay_id", relay.ID),
		slog.Bool("success", outcome.Success),
		slog.Float64("success_rate", relay.SuccessRate),
		slog.Bool("active", relay.Active))

	return relay, nil
}

// Counts reports the relay population for health metrics.
func (r *Registry) Counts(ctx context.Context) (repository.RelayCounts, error) {
	counts, err := r.repo.Counts(ctx)
	if err != nil {
		return repository.RelayCounts{}, fmt.Errorf("Counts: %w", err)
	}
	metrics.UpdateRelayCounts(counts.Total, counts.Active)
	return counts, nil
}

// MinSuccessRate exposes the eligibility floor for callers that need to
// explain an empty snapshot.
func (r *Registry) MinSuccessRate() float64 {
	return r.cfg.MinSuccessRate
}
