// Package probe implements the periodic relay health sweep. Every relay in
// storage, active or not, is exercised against a known-good endpoint and the
// result is fed back into its health record. Deactivated relays that pass a
// probe recover automatically through the feedback loop.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"relaypool/internal/domain/entity"
	"relaypool/internal/registry"
	"relaypool/internal/repository"
	"relaypool/internal/usecase/scrape"
)

// Config holds the probe sweep tuning.
type Config struct {
	// TargetURL is the endpoint fetched through every relay. It should be
	// cheap, stable, and outside the relays' own infrastructure.
	TargetURL string

	// Timeout bounds a single relay probe.
	Timeout time.Duration

	// MaxConcurrent bounds parallel probes.
	MaxConcurrent int
}

// DefaultConfig returns the default probe tuning.
func DefaultConfig() Config {
	return Config{
		TargetURL:     "https://www.gstatic.com/generate_204",
		Timeout:       10 * time.Second,
		MaxConcurrent: 5,
	}
}

// Stats summarizes one probe sweep.
type Stats struct {
	Probed    int
	Healthy   int
	Unhealthy int
	Duration  time.Duration
}

// Service runs relay health sweeps.
type Service struct {
	Repo     repository.RelayRepository
	Registry *registry.Registry
	Fetcher  scrape.Fetcher
	cfg      Config
}

// NewService creates a probe service.
func NewService(repo repository.RelayRepository, reg *registry.Registry, fetcher scrape.Fetcher, cfg Config) *Service {
	return &Service{Repo: repo, Registry: reg, Fetcher: fetcher, cfg: cfg}
}

// SweepAll probes every stored relay and records the outcomes. Individual
// probe failures mark the relay unhealthy but never fail the sweep; only a
// storage error does.
func (s *Service) SweepAll(ctx context.Context) (*Stats, error) {
	start := time.Now()

	relays, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("SweepAll: %w", err)
	}

	var healthy, unhealthy int64
	sem := make(chan struct{}, s.cfg.MaxConcurrent)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, relay := range relays {
		relay := relay
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return egCtx.Err()
			}
			defer func() { <-sem }()

			outcome := s.probeOne(egCtx, relay)
			if outcome.Success {
				atomic.AddInt64(&healthy, 1)
			} else {
				atomic.AddInt64(&unhealthy, 1)
			}

			if _, err := s.Registry.RecordOutcome(egCtx, relay.ID, outcome); err != nil {
				slog.Warn("failed to record probe outcome",
					slog.String("relay_id", relay.ID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("SweepAll: %w", err)
	}

	stats := &Stats{
		Probed:    len(relays),
		Healthy:   int(healthy),
		Unhealthy: int(unhealthy),
		Duration:  time.Since(start),
	}
	slog.Info("relay probe sweep completed",
		slog.Int("probed", stats.Probed),
		slog.Int("healthy", stats.Healthy),
		slog.Int("unhealthy", stats.Unhealthy),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// probeOne fetches the probe target through one relay.
func (s *Service) probeOne(ctx context.Context, relay *entity.Relay) registry.Outcome {
	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	_, err := s.Fetcher.Fetch(probeCtx, s.cfg.TargetURL, relay)
	elapsed := time.Since(start)

	outcome := registry.Outcome{Success: err == nil, ResponseTime: elapsed}
	if err != nil {
		outcome.ErrorMessage = err.Error()
		slog.Debug("relay probe failed",
			slog.String("relay_id", relay.ID),
			slog.Any("error", err))
	}
	return outcome
}
