package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"relaypool/internal/domain/entity"
	"relaypool/internal/observability/metrics"
	"relaypool/internal/observability/tracing"
	"relaypool/internal/registry"
	"relaypool/internal/resilience/circuitbreaker"
	"relaypool/internal/resilience/retry"
)

// Result is the payload of one successful fetch.
type Result struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

// Fetcher is the outbound transport capability. A nil relay means the fetch
// goes out directly without a proxy.
type Fetcher interface {
	Fetch(ctx context.Context, target string, relay *entity.Relay) (*Result, error)
}

// Selection reasons reported when no relay can be picked and the request
// falls back to the direct route.
const (
	ReasonNoActiveRelays = "no active relays"
	ReasonBelowMinimum   = "all relays below minimum success rate"
)

// Config holds the retry controller tuning.
type Config struct {
	// MaxAttempts bounds the sequential attempts per target.
	MaxAttempts int

	// FetchTimeout is the hard deadline applied to every single attempt.
	FetchTimeout time.Duration

	Backoff retry.BackoffConfig
}

// DefaultConfig returns the default retry tuning.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		FetchTimeout: 15 * time.Second,
		Backoff:      retry.DefaultBackoffConfig(),
	}
}

// RelayDecision is the outcome of a route selection: the picked relay, or nil
// with a reason when the request should go out directly.
type RelayDecision struct {
	Relay     *entity.Relay
	Reason    string
	FromCache bool
}

// Route returns the circuit breaker key for the decision.
func (d *RelayDecision) Route() string {
	if d.Relay == nil {
		return entity.DirectRoute
	}
	return d.Relay.Addr()
}

// HealthMetrics is the operational summary exposed by the admin surface.
type HealthMetrics struct {
	TotalRelays   int64
	ActiveRelays  int64
	TrackedRoutes int
	OpenBreakers  int
	CacheAge      time.Duration
	CacheFresh    bool
}

// Service orchestrates relay selection, circuit breaking, and retries around
// the fetch capability. Clock and random source are injected so the retry
// pacing and backoff jitter are controllable in tests.
type Service struct {
	Registry *registry.Registry
	Selector *registry.Selector
	Breakers *circuitbreaker.Bank
	Fetcher  Fetcher

	cfg   Config
	clock clock.Clock
	rng   *rand.Rand
}

// NewService creates the orchestration service. A nil rng disables backoff
// jitter.
func NewService(
	reg *registry.Registry,
	sel *registry.Selector,
	bank *circuitbreaker.Bank,
	fetcher Fetcher,
	cfg Config,
	clk clock.Clock,
	rng *rand.Rand,
) *Service {
	return &Service{
		Registry: reg,
		Selector: sel,
		Breakers: bank,
		Fetcher:  fetcher,
		cfg:      cfg,
		clock:    clk,
		rng:      rng,
	}
}

// GetOptimalRelay picks the best relay for the next request, or explains why
// the request should go out directly. Storage failure without a cached
// snapshot surfaces as ErrStorageUnavailable.
func (s *Service) GetOptimalRelay(ctx context.Context) (*RelayDecision, error) {
	decision, err := s.selectRoute(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("GetOptimalRelay: %w", err)
	}
	return decision, nil
}

// selectRoute picks a route for the next attempt. Relays whose routes appear
// in skip (already rejected by their breakers during this request) are left
// out of consideration so a re-selection cannot land on a known-open route.
func (s *Service) selectRoute(ctx context.Context, skip map[string]struct{}) (*RelayDecision, error) {
	snapshot, fromCache, err := s.Registry.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	view := snapshot
	if len(skip) > 0 {
		kept := make([]*entity.Relay, 0, len(snapshot.Relays))
		for _, relay := range snapshot.Relays {
			if _, open := skip[relay.Addr()]; !open {
				kept = append(kept, relay)
			}
		}
		view = &registry.Snapshot{Relays: kept, TakenAt: snapshot.TakenAt}
	}

	picked := s.Selector.Pick(view)
	metrics.RecordRelaySelection(picked != nil)
	if picked != nil {
		return &RelayDecision{Relay: picked, FromCache: fromCache}, nil
	}

	// The reason comes from the snapshot itself: an empty snapshot means the
	// pool has nothing active, a non-empty one means the selector filtered
	// every candidate out.
	reason := ReasonNoActiveRelays
	if len(view.Relays) > 0 {
		reason = ReasonBelowMinimum
	}
	slog.Debug("no eligible relay, using direct route", slog.String("reason", reason))
	return &RelayDecision{Reason: reason, FromCache: fromCache}, nil
}

// ReportOutcome feeds an externally observed request result back into the
// relay's health record and the route's circuit breaker.
func (s *Service) ReportOutcome(ctx context.Context, relayID string, outcome registry.Outcome) (*entity.Relay, error) {
	relay, err := s.Registry.RecordOutcome(ctx, relayID, outcome)
	if err != nil {
		return nil, fmt.Errorf("ReportOutcome: %w", err)
	}
	if outcome.Success {
		s.Breakers.RecordSuccess(relay.Addr())
	} else {
		s.Breakers.RecordFailure(relay.Addr())
	}
	return relay, nil
}

// RunWithRetry fetches the target with bounded sequential attempts. Every
// attempt re-selects a route, passes the route's circuit breaker, and runs
// under its own hard timeout. Failures are classified: permanent failures
// abort immediately, transient and rate-limit failures back off and retry.
// An open breaker consumes no attempt: the loop re-selects once per newly
// discovered open route and fails with ErrServiceUnavailable as soon as an
// open route repeats.
func (s *Service) RunWithRetry(ctx context.Context, target string) (*Result, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "scrape.RunWithRetry")
	defer span.End()
	span.SetAttributes(attribute.String("target", target))

	start := s.clock.Now()
	var (
		fetches   int
		lastErr   error
		lastClass = retry.ClassNone
	)
	rejected := make(map[string]struct{})

	for fetches < s.cfg.MaxAttempts {
		delay := s.cfg.Backoff.Delay(fetches+1, lastClass, s.rng)
		if err := s.wait(ctx, delay); err != nil {
			metrics.RecordRequestOutcome("canceled")
			return nil, s.terminal(span, target, fetches, start, retry.ClassPermanent, err)
		}

		decision, err := s.selectRoute(ctx, rejected)
		if err != nil {
			metrics.RecordRequestOutcome("storage_unavailable")
			return nil, s.terminal(span, target, fetches, start, retry.ClassNone, err)
		}
		route := decision.Route()

		done, err := s.Breakers.Allow(route)
		if err != nil {
			slog.Warn("route rejected by open breaker",
				slog.String("target", target),
				slog.String("route", route))
			if _, seen := rejected[route]; seen {
				metrics.RecordRequestOutcome("unavailable")
				return nil, s.terminal(span, target, fetches, start, retry.ClassUnavailable,
					fmt.Errorf("%w: %w", ErrServiceUnavailable, err))
			}
			rejected[route] = struct{}{}
			continue
		}

		result, class, fetchErr := s.attempt(ctx, target, decision)
		done(fetchErr == nil)
		fetches++

		if fetchErr == nil {
			span.SetAttributes(attribute.Int("attempts", fetches))
			metrics.RecordRequestOutcome("success")
			return result, nil
		}

		lastErr = fetchErr
		lastClass = class

		if ctx.Err() != nil {
			metrics.RecordRequestOutcome("canceled")
			return nil, s.terminal(span, target, fetches, start, class, ctx.Err())
		}
		if class == retry.ClassPermanent {
			metrics.RecordRequestOutcome("permanent")
			return nil, s.terminal(span, target, fetches, start, class,
				fmt.Errorf("%w: %w", ErrPermanentFailure, fetchErr))
		}

		slog.Warn("attempt failed, will retry",
			slog.String("target", target),
			slog.String("route", route),
			slog.Int("attempt", fetches),
			slog.String("class", string(class)),
			slog.Any("error", fetchErr))
	}

	metrics.RecordRequestOutcome("exhausted")
	return nil, s.terminal(span, target, fetches, start, lastClass,
		fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr))
}

// attempt runs one fetch through the decided route, records its outcome in
// the registry, and classifies the failure.
func (s *Service) attempt(ctx context.Context, target string, decision *RelayDecision) (*Result, retry.Class, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	start := s.clock.Now()
	result, err := s.Fetcher.Fetch(attemptCtx, target, decision.Relay)
	elapsed := s.clock.Now().Sub(start)

	class := retry.ClassNone
	if err != nil {
		class = retry.Classify(err)
	}
	metrics.RecordFetchAttempt(decision.Relay == nil, err == nil, string(class), elapsed)

	if decision.Relay != nil {
		outcome := registry.Outcome{Success: err == nil, ResponseTime: elapsed}
		if err != nil {
			outcome.ErrorMessage = err.Error()
		}
		if _, recErr := s.Registry.RecordOutcome(ctx, decision.Relay.ID, outcome); recErr != nil {
			slog.Warn("failed to record relay outcome",
				slog.String("relay_id", decision.Relay.ID),
				slog.Any("error", recErr))
		}
	}

	if err != nil {
		return nil, class, err
	}
	return result, class, nil
}

// ResetCircuitBreakers force-closes the given routes, or every tracked route
// when none are named. It returns the routes that were reset.
func (s *Service) ResetCircuitBreakers(routes []string) []string {
	if len(routes) == 0 {
		routes = s.Breakers.Routes()
		s.Breakers.ResetAll()
	} else {
		for _, route := range routes {
			s.Breakers.Reset(route)
		}
	}
	metrics.UpdateOpenBreakers(s.Breakers.OpenCount())
	slog.Info("circuit breakers reset", slog.Int("routes", len(routes)))
	return routes
}

// GetHealthMetrics reports the relay population, breaker states, and snapshot
// cache freshness.
func (s *Service) GetHealthMetrics(ctx context.Context) (*HealthMetrics, error) {
	counts, err := s.Registry.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetHealthMetrics: %w", err)
	}

	open := s.Breakers.OpenCount()
	metrics.UpdateOpenBreakers(open)

	hm := &HealthMetrics{
		TotalRelays:   counts.Total,
		ActiveRelays:  counts.Active,
		TrackedRoutes: len(s.Breakers.Routes()),
		OpenBreakers:  open,
	}
	if age, ok := s.Registry.CacheAge(); ok {
		hm.CacheAge = age
		hm.CacheFresh = true
	}
	return hm, nil
}

// wait sleeps for the given duration on the injected clock, aborting early
// when the context is canceled.
func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := s.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// terminal builds the RetryError for a failed request and marks the span.
func (s *Service) terminal(span trace.Span, target string, attempts int, start time.Time, class retry.Class, err error) error {
	retryErr := &RetryError{
		Target:   target,
		Attempts: attempts,
		Elapsed:  s.clock.Now().Sub(start),
		Class:    class,
		Err:      err,
	}
	span.RecordError(retryErr)
	span.SetStatus(codes.Error, string(class))
	slog.Error("request failed",
		slog.String("target", target),
		slog.Int("attempts", retryErr.Attempts),
		slog.String("class", string(class)),
		slog.Any("error", err))
	return retryErr
}
