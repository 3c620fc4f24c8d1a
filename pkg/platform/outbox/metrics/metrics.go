// Package metrics instruments the journal relay. A nil *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

type Metrics struct {
	PendingDepth    prometheus.Gauge
	PublishedTotal  *prometheus.CounterVec
	PublishFailures prometheus.Counter
	PrunedTotal     prometheus.Counter
	PublishDuration prometheus.Histogram
	BatchSize       prometheus.Histogram
	PollDuration    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PendingDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "kycgate_outbox_pending_total",
			Help: "Journal entries not yet relayed.",
		}),
		PublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_outbox_published_total",
			Help: "Journal entries relayed to Kafka, by event type.",
		}, []string{"event_type"}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_outbox_publish_failures_total",
			Help: "Failed fetch or publish attempts.",
		}),
		PrunedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_outbox_pruned_total",
			Help: "Relayed journal entries deleted after the retention period.",
		}),
		PublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_outbox_publish_duration_seconds",
			Help:    "Time to publish one entry.",
			Buckets: latencyBuckets,
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_outbox_batch_size",
			Help:    "Entries fetched per poll.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_outbox_poll_duration_seconds",
			Help:    "Time per poll cycle.",
			Buckets: latencyBuckets,
		}),
	}
}

func (m *Metrics) SetPendingDepth(n int64) {
	if m != nil {
		m.PendingDepth.Set(float64(n))
	}
}

func (m *Metrics) IncPublished(eventType string) {
	if m != nil {
		m.PublishedTotal.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

func (m *Metrics) AddPruned(n int64) {
	if m != nil {
		m.PrunedTotal.Add(float64(n))
	}
}

func (m *Metrics) ObservePublish(since time.Time) {
	if m != nil {
		m.PublishDuration.Observe(time.Since(since).Seconds())
	}
}

func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}

func (m *Metrics) ObservePoll(since time.Time) {
	if m != nil {
		m.PollDuration.Observe(time.Since(since).Seconds())
	}
}
