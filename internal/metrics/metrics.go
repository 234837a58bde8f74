// Package metrics holds the Prometheus collectors shared by the market-data
// components. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector exported by the service.
type Metrics struct {
	cacheRequests      *prometheus.CounterVec
	providerRequests   *prometheus.CounterVec
	providerDuration   *prometheus.HistogramVec
	syntheticFallbacks *prometheus.CounterVec
	broadcastCycles    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_cache_requests_total",
			Help: "Quote cache lookups by backend and result (hit, miss).",
		}, []string{"backend", "result"}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_provider_requests_total",
			Help: "Upstream provider calls by outcome status.",
		}, []string{"provider", "op", "status"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_provider_duration_seconds",
			Help:    "Latency of upstream provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		syntheticFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_synthetic_fallbacks_total",
			Help: "Batch entries filled by the synthetic generator after a failure.",
		}, []string{"op"}),
		broadcastCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_broadcast_cycles_total",
			Help: "Price broadcast cycles by result (ok, failed, skipped).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheRequests, m.providerRequests, m.providerDuration,
			m.syntheticFallbacks, m.broadcastCycles)
	}
	return m
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(backend string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(backend, result).Inc()
}

// ProviderCall records the outcome and latency of one upstream call.
func (m *Metrics) ProviderCall(provider, op, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, op, status).Inc()
	m.providerDuration.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

// SyntheticFallback records a batch entry replaced by synthetic data.
func (m *Metrics) SyntheticFallback(op string) {
	if m == nil {
		return
	}
	m.syntheticFallbacks.WithLabelValues(op).Inc()
}

// BroadcastCycle records one scheduler price cycle.
func (m *Metrics) BroadcastCycle(result string) {
	if m == nil {
		return
	}
	m.broadcastCycles.WithLabelValues(result).Inc()
}

// CacheRequests exposes the cache counter for tests.
func (m *Metrics) CacheRequests() *prometheus.CounterVec { return m.cacheRequests }

// ProviderRequests exposes the provider counter for tests.
func (m *Metrics) ProviderRequests() *prometheus.CounterVec { return m.providerRequests }

// SyntheticFallbacks exposes the fallback counter for tests.
func (m *Metrics) SyntheticFallbacks() *prometheus.CounterVec { return m.syntheticFallbacks }

// BroadcastCycles exposes the cycle counter for tests.
func (m *Metrics) BroadcastCycles() *prometheus.CounterVec { return m.broadcastCycles }
