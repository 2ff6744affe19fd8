package metrics

import (
	"time"
)

// RecordFetchAttempt records one outbound attempt with its route kind,
// outcome and retry classification.
func RecordFetchAttempt(direct bool, success bool, class string, duration time.Duration) {
	routeKind := "relay"
	if direct {
		routeKind = "direct"
	}
	result := "success"
	if !success {
		result = "failure"
	}
	FetchAttemptsTotal.WithLabelValues(routeKind, result, class).Inc()
	FetchAttemptDuration.Observe(duration.Seconds())
}

// RecordRequestOutcome records the terminal outcome of a logical request
// after its retry loop finishes. Result should be one of "success",
// "exhausted", "permanent" or "unavailable".
func RecordRequestOutcome(result string) {
	RequestRetriesTotal.WithLabelValues(result).Inc()
}

// RecordRelaySelection records whether the selector produced a relay or the
// request fell back to a direct connection.
func RecordRelaySelection(viaRelay bool) {
	result := "direct"
	if viaRelay {
		result = "relay"
	}
	RelaySelectionsTotal.WithLabelValues(result).Inc()
}

// RecordSnapshotRefresh records where a registry snapshot read was served
// from. Source should be "cache", "storage" or "stale_fallback".
func RecordSnapshotRefresh(source string) {
	SnapshotRefreshTotal.WithLabelValues(source).Inc()
}

// UpdateRelayCounts updates the relay population gauges.
// These gauges should be refreshed whenever the registry reloads.
func UpdateRelayCounts(total, active int64) {
	RelaysTotal.Set(float64(total))
	ActiveRelays.Set(float64(active))
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(route, to string) {
	BreakerTransitionsTotal.WithLabelValues(route, to).Inc()
}

// UpdateOpenBreakers updates the open-breaker gauge.
func UpdateOpenBreakers(open int) {
	BreakersOpen.Set(float64(open))
}

// RecordBatchTarget records the outcome of a single target within a batch.
func RecordBatchTarget(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	BatchTargetsTotal.WithLabelValues(result).Inc()
}

// RecordBatchDuration records the wall-clock duration of a full batch run.
func RecordBatchDuration(duration time.Duration) {
	BatchDuration.Observe(duration.Seconds())
}

// RecordDBQuery records the duration of a relay store operation.
// Operation should describe the query type (e.g., "list_eligible", "update_health").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
