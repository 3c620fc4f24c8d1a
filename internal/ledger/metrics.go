package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	opUpdate = "update"
	opView   = "view"
)

// Metrics tracks per-holder lock contention and transaction outcomes.
type Metrics struct {
	LockWait     *prometheus.HistogramVec
	Transactions *prometheus.CounterVec
}

// NewMetrics registers ledger metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LockWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_ledger_lock_wait_seconds",
			Help:    "Time spent waiting to be admitted for a holder",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ledger_transactions_total",
			Help: "Ledger transactions by operation and outcome",
		}, []string{"op", "outcome"}),
	}
}

func (m *Metrics) observeWait(op string, start time.Time) {
	if m == nil {
		return
	}
	m.LockWait.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeOutcome(op string, err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "aborted"
	}
	m.Transactions.WithLabelValues(op, outcome).Inc()
}
