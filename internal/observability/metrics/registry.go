// Package metrics provides centralized Prometheus metrics for the relay
// orchestration core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics track individual outbound attempts and their retry loops
var (
	// FetchAttemptsTotal counts outbound fetch attempts by route kind, result and class
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_attempts_total",
			Help: "Total number of outbound fetch attempts",
		},
		[]string{"route_kind", "result", "class"}, // route_kind: relay, direct
	)

	// FetchAttemptDuration measures single attempt duration in seconds
	FetchAttemptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_attempt_duration_seconds",
			Help:    "Duration of a single outbound fetch attempt",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	// RequestRetriesTotal counts logical requests by how many attempts they consumed
	RequestRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_retries_total",
			Help: "Total number of logical requests by final outcome",
		},
		[]string{"result"}, // result: success, exhausted, permanent, unavailable
	)
)

// Relay selection and registry metrics
var (
	// RelaySelectionsTotal counts selector outcomes
	RelaySelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_selections_total",
			Help: "Total number of relay selection attempts",
		},
		[]string{"result"}, // result: relay, direct
	)

	// SnapshotRefreshTotal counts registry snapshot loads by source
	SnapshotRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_snapshot_refresh_total",
			Help: "Total number of registry snapshot reads",
		},
		[]string{"source"}, // source: cache, storage, stale_fallback
	)

	// ActiveRelays tracks the number of active relays known to the registry
	ActiveRelays = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relays_active",
			Help: "Number of active relays",
		},
	)

	// RelaysTotal tracks the total number of relays known to the registry
	RelaysTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relays_total",
			Help: "Total number of relays",
		},
	)
)

// Circuit breaker metrics
var (
	// BreakerTransitionsTotal counts breaker state transitions per route
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"route", "to"},
	)

	// BreakersOpen tracks how many routes currently reject requests
	BreakersOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuit_breakers_open",
			Help: "Number of routes with an open circuit breaker",
		},
	)
)

// Batch metrics
var (
	// BatchTargetsTotal counts batch targets by result
	BatchTargetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_targets_total",
			Help: "Total number of batch targets processed",
		},
		[]string{"result"}, // result: success, failure
	)

	// BatchDuration measures whole-batch duration in seconds
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Duration of a full batch run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)
)

// Database metrics track relay store performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)
