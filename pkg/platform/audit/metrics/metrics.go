package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the audit publisher. A nil *Metrics records nothing.
type Metrics struct {
	QueueDepth      prometheus.Gauge
	EventsDropped   prometheus.Counter
	EventsEnqueued  prometheus.Counter
	PersistDuration prometheus.Histogram
	PersistFailures prometheus.Counter
	EventsProcessed prometheus.Counter
}

// New registers the audit publisher metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kycgate_audit_queue_depth",
			Help: "Current number of events in the audit publisher queue",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_events_dropped_total",
			Help: "Total number of audit events dropped due to full buffer",
		}),
		EventsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_events_enqueued_total",
			Help: "Total number of audit events successfully enqueued",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_audit_persist_duration_seconds",
			Help:    "Time taken to persist an audit event to the store",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_events_processed_total",
			Help: "Total number of audit events persisted",
		}),
	}
}

func (m *Metrics) enabled() bool { return m != nil }

func (m *Metrics) Enqueued() {
	if m.enabled() {
		m.QueueDepth.Inc()
		m.EventsEnqueued.Inc()
	}
}

func (m *Metrics) Dequeued() {
	if m.enabled() {
		m.QueueDepth.Dec()
	}
}

func (m *Metrics) Dropped() {
	if m.enabled() {
		m.EventsDropped.Inc()
	}
}

// Persisted records one store write and its outcome.
func (m *Metrics) Persisted(since time.Time, err error) {
	if !m.enabled() {
		return
	}
	m.PersistDuration.Observe(time.Since(since).Seconds())
	if err != nil {
		m.PersistFailures.Inc()
		return
	}
	m.EventsProcessed.Inc()
}
