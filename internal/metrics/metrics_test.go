package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_CountersAreIndependentAcrossInstances(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.RxMessageTotal.WithLabelValues("p1").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.RxMessageTotal.WithLabelValues("p1")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.RxMessageTotal.WithLabelValues("p1")))
}

func TestNewRegistry_NoDuplicateCollectorPanic(t *testing.T) {
	require.NotPanics(t, func() {
		NewRegistry()
		NewRegistry()
	})
}

func TestRegistry_SetVersion(t *testing.T) {
	r := NewRegistry()
	r.SetVersion("1.2.3", "2026-01-01", "zeppelin")

	assert.Equal(t, float64(1), testutil.ToFloat64(r.Version.WithLabelValues("1.2.3", "2026-01-01", "zeppelin")))
}

func TestRegistry_GathererExposesRegisteredMetrics(t *testing.T) {
	r := NewRegistry()
	r.TxMessageTotal.WithLabelValues("p1").Inc()

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "zeppelin_tx_message_total" {
			found = true
		}
	}
	assert.True(t, found)
}
