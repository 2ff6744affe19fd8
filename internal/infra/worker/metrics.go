package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"relaypool/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the probe worker. It embeds
// the shared config metrics (load timestamp, validation errors, fallbacks)
// and adds collectors for the periodic relay probe job:
//
//   - worker_probe_runs_total: probe sweeps by status (success/failure)
//   - worker_probe_duration_seconds: probe sweep duration histogram
//   - worker_probe_relays_checked_total: relays probed across all sweeps
//   - worker_probe_last_success_timestamp: last successful sweep
type WorkerMetrics struct {
	*config.Metrics

	ProbeRunsTotal *prometheus.CounterVec

	ProbeDurationSeconds prometheus.Histogram

	ProbeRelaysCheckedTotal prometheus.Counter

	ProbeLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates all worker metrics. Registration happens via
// promauto at construction time.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		Metrics: config.NewMetrics("worker"),

		ProbeRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_probe_runs_total",
			Help: "Total number of relay probe sweeps by status (success/failure)",
		}, []string{"status"}),

		ProbeDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_probe_duration_seconds",
			Help:    "Duration of relay probe sweeps in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),

		ProbeRelaysCheckedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_probe_relays_checked_total",
			Help: "Total number of relays probed across all sweeps",
		}),

		ProbeLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_probe_last_success_timestamp",
			Help: "Unix timestamp of the last successful probe sweep",
		}),
	}
}

// MustRegister is a no-op kept for the conventional initialization shape;
// promauto already registered everything in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {}

// RecordProbeRun counts one probe sweep with the given status.
func (m *WorkerMetrics) RecordProbeRun(status string) {
	m.ProbeRunsTotal.WithLabelValues(status).Inc()
}

// RecordProbeDuration observes one sweep's duration.
func (m *WorkerMetrics) RecordProbeDuration(seconds float64) {
	m.ProbeDurationSeconds.Observe(seconds)
}

// RecordRelaysChecked adds the number of relays covered by one sweep.
func (m *WorkerMetrics) RecordRelaysChecked(count int) {
	m.ProbeRelaysCheckedTotal.Add(float64(count))
}

// RecordLastSuccess marks the current time as the last successful sweep.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.ProbeLastSuccessTimestamp.Set(float64(time.Now().Unix()))
}
