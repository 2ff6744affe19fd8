package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes configuration loading health per component. A non-zero
// fallback gauge on a running binary means it is not using the settings the
// operator thinks it is.
type Metrics struct {
	loadedAt       prometheus.Gauge
	invalidTotal   *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	fallbackActive prometheus.Gauge
}

// NewMetrics registers the config collectors under the given component
// prefix. Component names must be unique per process or promauto panics.
func NewMetrics(component string) *Metrics {
	return &Metrics{
		loadedAt: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", component),
			Help: fmt.Sprintf("Unix timestamp of the last %s configuration load", component),
		}),
		invalidTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", component),
			Help: fmt.Sprintf("Rejected %s configuration values by field", component),
		}, []string{"field"}),
		fallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", component),
			Help: fmt.Sprintf("Defaults substituted for %s configuration values by field", component),
		}, []string{"field"}),
		fallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", component),
			Help: fmt.Sprintf("1 while any %s setting runs on a fallback default", component),
		}),
	}
}

// Loaded stamps the load timestamp with the current time.
func (m *Metrics) Loaded() {
	m.loadedAt.SetToCurrentTime()
}

// Invalid counts one rejected value for the field.
func (m *Metrics) Invalid(field string) {
	m.invalidTotal.WithLabelValues(field).Inc()
}

// Fallback counts one default substitution for the field.
func (m *Metrics) Fallback(field string) {
	m.fallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive flags whether any setting is currently running on its
// fallback default.
func (m *Metrics) SetFallbackActive(active bool) {
	if active {
		m.fallbackActive.Set(1)
	} else {
		m.fallbackActive.Set(0)
	}
}
