package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CacheLookup("memory", true)
	m.CacheLookup("memory", false)
	m.CacheLookup("memory", false)
	m.ProviderCall("polygon", "price", "ok", 20*time.Millisecond)
	m.SyntheticFallback("price")
	m.BroadcastCycle("failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests().WithLabelValues("memory", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests().WithLabelValues("memory", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests().WithLabelValues("polygon", "price", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyntheticFallbacks().WithLabelValues("price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastCycles().WithLabelValues("failed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("memory", true)
		m.ProviderCall("polygon", "price", "ok", time.Second)
		m.SyntheticFallback("history")
		m.BroadcastCycle("ok")
	})
}
