package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
	Errors    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_decisions_total",
			Help: "Rate limit checks by scope and decision",
		}, []string{"scope", "decision"}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_errors_total",
			Help: "Rate limit checks that failed open because the store errored",
		}),
	}
}

func (m *Metrics) ObserveDecision(scope string, allowed bool) {
	if m == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "limited"
	}
	m.Decisions.WithLabelValues(scope, decision).Inc()
}

func (m *Metrics) IncError() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}
