package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the consent ledger.
type Metrics struct {
	Changes *prometheus.CounterVec
	NoOps   prometheus.Counter
	Denied  prometheus.Counter
}

// New registers consent metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_consent_changes_total",
			Help: "Consent flags changed, labelled by the new value",
		}, []string{"granted"}),
		NoOps: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_consent_noop_total",
			Help: "SetConsent calls that repeated the current value",
		}),
		Denied: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_consent_denied_total",
			Help: "SetConsent calls rejected because the caller is not the holder",
		}),
	}
}

func (m *Metrics) IncChange(granted bool) {
	if m == nil {
		return
	}
	label := "false"
	if granted {
		label = "true"
	}
	m.Changes.WithLabelValues(label).Inc()
}

func (m *Metrics) IncNoOp() {
	if m == nil {
		return
	}
	m.NoOps.Inc()
}

func (m *Metrics) IncDenied() {
	if m == nil {
		return
	}
	m.Denied.Inc()
}
