package tracker

import (
	"time"

	"github.com/marmos91/peertrack/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons, used as the dropped_total label and in logs.
const (
	DropMalformed         = "malformed"
	DropPayloadTooShort   = "payload_too_short"
	DropIllegalTransition = "illegal_transition"
	DropHandlerError      = "handler_error"
	DropOversize          = "oversize"
)

// Request outcomes.
const (
	outcomeOK      = "ok"
	outcomeEnded   = "ended"
	outcomeDropped = "dropped"
)

// Metrics provides Prometheus metrics for the tracker engine.
// All methods are nil-safe.
type Metrics struct {
	// RequestsTotal counts decoded requests by message type and outcome.
	RequestsTotal *prometheus.CounterVec

	// DroppedTotal counts datagrams that produced no response, by reason.
	DroppedTotal *prometheus.CounterVec

	// RequestDuration observes request handling latency by message type.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers tracker metrics. If reg is nil, metrics
// are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peertrack",
			Subsystem: "tracker",
			Name:      "requests_total",
			Help:      "Total number of tracker requests by message type and outcome",
		}, []string{"type", "outcome"}),
		DroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peertrack",
			Subsystem: "tracker",
			Name:      "dropped_total",
			Help:      "Total number of datagrams dropped without a response",
		}, []string{"reason"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "peertrack",
			Subsystem: "tracker",
			Name:      "request_duration_seconds",
			Help:      "Tracker request handling latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"type"}),
	}

	if reg != nil {
		m.RequestsTotal = metrics.RegisterOrReuse(reg, m.RequestsTotal).(*prometheus.CounterVec)
		m.DroppedTotal = metrics.RegisterOrReuse(reg, m.DroppedTotal).(*prometheus.CounterVec)
		m.RequestDuration = metrics.RegisterOrReuse(reg, m.RequestDuration).(*prometheus.HistogramVec)
	}

	return m
}

func (m *Metrics) recordRequest(msgType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(msgType, outcome).Inc()
	m.RequestDuration.WithLabelValues(msgType).Observe(elapsed.Seconds())
}

func (m *Metrics) recordDrop(reason string) {
	if m == nil {
		return
	}
	m.DroppedTotal.WithLabelValues(reason).Inc()
}
