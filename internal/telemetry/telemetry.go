// Package telemetry exposes Prometheus metrics about the monitor layer itself:
// how often sources re-measure, how long that takes, and which candidates the
// registry excluded. It does not export the collected host metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hostmon"

// Refresh outcomes.
const (
	OutcomeMeasured = "measured"
	OutcomeCached   = "cached"
	OutcomeFailed   = "failed"
	// OutcomeBackoff is a call answered with the previous failure.
	OutcomeBackoff = "backoff"
)

// Metrics groups the self-metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	exclusions      *prometheus.CounterVec
	active          prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_refreshes_total",
			Help:      "Refresh checks per monitor, by outcome.",
		}, []string{"monitor", "outcome"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_measure_duration_seconds",
			Help:      "Time spent re-measuring a monitor.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"monitor"}),
		exclusions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_exclusions_total",
			Help:      "Candidates excluded during registry build, by category and reason.",
		}, []string{"category", "reason"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitors_active",
			Help:      "Number of active monitors.",
		}),
	}
	reg.MustRegister(m.refreshes, m.refreshDuration, m.exclusions, m.active)
	return m
}

// ObserveRefresh records one refresh check. elapsed is only used when a
// measurement actually ran.
func (m *Metrics) ObserveRefresh(monitor, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(monitor, outcome).Inc()
	if outcome == OutcomeMeasured || outcome == OutcomeFailed {
		m.refreshDuration.WithLabelValues(monitor).Observe(elapsed.Seconds())
	}
}

// ObserveExclusion records an excluded candidate.
func (m *Metrics) ObserveExclusion(category, reason string) {
	if m == nil {
		return
	}
	m.exclusions.WithLabelValues(category, reason).Inc()
}

// SetActive records how many monitors were activated.
func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
