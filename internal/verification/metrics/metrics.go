package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeVerified     = "verified"
	OutcomeNotVerified  = "not_verified"
	OutcomeNoCredential = "no_credential"
	OutcomeError        = "error"
)

type Metrics struct {
	Verifications *prometheus.CounterVec
	Latency       prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verifications_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_verification_duration_seconds",
			Help:    "Time to reach a verification decision, including ledger admission",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Observe(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
	m.Latency.Observe(time.Since(start).Seconds())
}
