package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pdavault"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors for ledger operations.
type Metrics struct {
	Operations      *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	AccountsCreated prometheus.Counter
	Airdrops        prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ledger operations by name and outcome",
		}, []string{"op", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing ledger operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		AccountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_created_total",
			Help:      "Ledger accounts created by a first deposit",
		}),
		Airdrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "airdrops_total",
			Help:      "Airdrops credited to external holders",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Duration, m.AccountsCreated, m.Airdrops)
	}
	return m
}

// Observe records one operation. Safe to call on a nil *Metrics.
func (m *Metrics) Observe(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// IncAccountsCreated counts a newly opened account. Safe to call on a nil *Metrics.
func (m *Metrics) IncAccountsCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

// IncAirdrops counts a credited airdrop. Safe to call on a nil *Metrics.
func (m *Metrics) IncAirdrops() {
	if m == nil {
		return
	}
	m.Airdrops.Inc()
}
