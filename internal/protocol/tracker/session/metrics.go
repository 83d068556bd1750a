package session

import (
	"github.com/marmos91/peertrack/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// Prometheus Metrics for Tracker Sessions
// ============================================================================

// Metrics provides Prometheus metrics for session lifecycle tracking.
// All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	// CreatedTotal counts the total number of sessions created.
	CreatedTotal prometheus.Counter

	// RemovedTotal counts sessions removed, labeled by reason.
	// Reason values: "thanks", "idle", "aborted".
	RemovedTotal *prometheus.CounterVec

	// ActiveGauge tracks the current number of live sessions.
	ActiveGauge prometheus.Gauge

	// DurationHistogram observes session lifetimes in seconds.
	DurationHistogram prometheus.Histogram
}

// NewMetrics creates and registers session metrics with the given Prometheus
// registerer. If reg is nil, metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peertrack",
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of tracker sessions created",
		}),
		RemovedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peertrack",
			Subsystem: "sessions",
			Name:      "removed_total",
			Help:      "Total number of tracker sessions removed",
		}, []string{"reason"}),
		ActiveGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "peertrack",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Current number of live tracker sessions",
		}),
		DurationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "peertrack",
			Subsystem: "sessions",
			Name:      "duration_seconds",
			Help:      "Lifetime of tracker sessions in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16), // 10ms to ~5.5 minutes
		}),
	}

	if reg != nil {
		m.CreatedTotal = metrics.RegisterOrReuse(reg, m.CreatedTotal).(prometheus.Counter)
		m.RemovedTotal = metrics.RegisterOrReuse(reg, m.RemovedTotal).(*prometheus.CounterVec)
		m.ActiveGauge = metrics.RegisterOrReuse(reg, m.ActiveGauge).(prometheus.Gauge)
		m.DurationHistogram = metrics.RegisterOrReuse(reg, m.DurationHistogram).(prometheus.Histogram)
	}

	return m
}

func (m *Metrics) recordCreated() {
	if m == nil {
		return
	}
	m.CreatedTotal.Inc()
	m.ActiveGauge.Inc()
}

func (m *Metrics) recordRemoved(reason string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RemovedTotal.WithLabelValues(reason).Inc()
	m.ActiveGauge.Dec()
	m.DurationHistogram.Observe(durationSeconds)
}
