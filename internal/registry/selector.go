package registry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"relaypool/internal/domain/entity"
)

// SelectorConfig holds the weighted-selection tuning. SuccessWeight must stay
// dominant over the random jitter or unhealthy relays start winning ties.
type SelectorConfig struct {
	SuccessWeight float64
	RecencyWeight float64
	LatencyWeight float64
	BalanceWeight float64

	// RandomJitter is the upper bound of the unweighted random term added to
	// every score to break ties and avoid herding onto one relay.
	RandomJitter float64

	// MaxLatencyMs is the response time at which the latency weight bottoms
	// out at zero.
	MaxLatencyMs float64

	// RecencyWindow is the idle duration after which a relay scores full
	// rotation credit.
	RecencyWindow time.Duration

	// MinSuccessRate guards against stale snapshots: candidates below it (or
	// inactive ones) are skipped even if the snapshot still lists them.
	MinSuccessRate float64
}

// DefaultSelectorConfig returns the default selection weights.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		SuccessWeight:  0.4,
		RecencyWeight:  0.25,
		LatencyWeight:  0.2,
		BalanceWeight:  0.1,
		RandomJitter:   0.2,
		MaxLatencyMs:   5000,
		RecencyWindow:  24 * time.Hour,
		MinSuccessRate: 25,
	}
}

// Selector ranks a snapshot of relays and picks the best candidate. The
// random source is injected so tests can seed it; access to it is serialized
// because selections run from concurrent per-target tasks.
type Selector struct {
	cfg   SelectorConfig
	clock clock.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector with the given configuration and random
// source.
func NewSelector(cfg SelectorConfig, clk clock.Clock, rng *rand.Rand) *Selector {
	return &Selector{cfg: cfg, clock: clk, rng: rng}
}

// Pick returns the highest-scoring eligible relay in the snapshot, or nil
// when none qualifies. It must be called fresh for every request: scores
// shift with every recorded outcome and sticky assignment would defeat
// rotation.
func (s *Selector) Pick(snapshot *Snapshot) *entity.Relay {
	if snapshot == nil || len(snapshot.Relays) == 0 {
		return nil
	}

	now := s.clock.Now()
	maxTotal := int64(0)
	for _, relay := range snapshot.Relays {
		if relay.TotalRequests > maxTotal {
			maxTotal = relay.TotalRequests
		}
	}

	var best *entity.Relay
	bestScore := -1.0
	for _, relay := range snapshot.Relays {
		if !relay.Active || relay.SuccessRate < s.cfg.MinSuccessRate {
			continue
		}
		score := s.score(relay, now, maxTotal) + s.jitter()
		if score > bestScore {
			best = relay
			bestScore = score
		}
	}
	return best
}

// score combines the four health signals into one weighted value.
func (s *Selector) score(relay *entity.Relay, now time.Time, maxTotal int64) float64 {
	success := relay.SuccessRate / 100

	// never-used relays score full rotation credit
	recency := 1.0
	if relay.LastUsedAt != nil {
		idle := now.Sub(*relay.LastUsedAt)
		if idle < 0 {
			idle = 0
		}
		if idle > s.cfg.RecencyWindow {
			idle = s.cfg.RecencyWindow
		}
		recency = float64(idle) / float64(s.cfg.RecencyWindow)
	}

	latency := 1 - relay.AvgResponseTimeMs/s.cfg.MaxLatencyMs
	if latency < 0 {
		latency = 0
	}

	balance := 1.0
	if maxTotal > 0 {
		balance = 1 - float64(relay.TotalRequests)/float64(maxTotal)
	}

	return s.cfg.SuccessWeight*success +
		s.cfg.RecencyWeight*recency +
		s.cfg.LatencyWeight*latency +
		s.cfg.BalanceWeight*balance
}

func (s *Selector) jitter() float64 {
	if s.rng == nil || s.cfg.RandomJitter <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * s.cfg.RandomJitter
}
