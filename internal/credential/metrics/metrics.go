package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the credential store.
type Metrics struct {
	Issued *prometheus.CounterVec
	Denied prometheus.Counter
}

// New registers credential metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_credentials_issued_total",
			Help: "Credentials written, labelled by whether an existing record was replaced",
		}, []string{"kind"}),
		Denied: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_credential_issue_denied_total",
			Help: "Issue calls rejected because the caller is not an authorized issuer",
		}),
	}
}

func (m *Metrics) IncIssued(superseded bool) {
	if m == nil {
		return
	}
	kind := "first"
	if superseded {
		kind = "superseded"
	}
	m.Issued.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncDenied() {
	if m == nil {
		return
	}
	m.Denied.Inc()
}
