package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("deposit", time.Now(), nil)
	m.Observe("deposit", time.Now(), nil)
	m.Observe("deposit", time.Now(), errors.New("boom"))
	m.IncAccountsCreated()
	m.IncAirdrops()

	require.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("deposit", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("deposit", OutcomeError)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AccountsCreated))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Airdrops))
	require.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.Observe("withdraw", time.Now(), nil)
		m.IncAccountsCreated()
		m.IncAirdrops()
	})
}
