// Package metrics provides Prometheus instrumentation for the query engine.
// A Metrics value is constructed against an explicit Registerer and injected
// into the engine, so isolated engine instances in tests never share state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries all engine-level Prometheus collectors.
type Metrics struct {
	// Cache behavior per tier ("memory" or "persistent").
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Provider call accounting, labeled by provider id.
	ProviderCalls   *prometheus.CounterVec
	ProviderRetries *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec

	// RateLimitWait observes time spent blocked waiting for a token.
	RateLimitWait prometheus.Histogram

	// Mask phase accounting, labeled by phase name.
	MaskRowsDropped *prometheus.CounterVec

	QueryDuration prometheus.Histogram
}

// New registers and returns the engine metric set. reg may be a distinct
// registry per engine instance.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statline",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by tier.",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statline",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by tier.",
		}, []string{"tier"}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statline",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Outbound provider calls by provider id.",
		}, []string{"provider"}),
		ProviderRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statline",
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Retried provider calls by provider id.",
		}, []string{"provider"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statline",
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Provider calls that exhausted retries, by provider id.",
		}, []string{"provider"}),
		RateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "statline",
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent blocked acquiring a rate limit token.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		MaskRowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statline",
			Subsystem: "mask",
			Name:      "rows_dropped_total",
			Help:      "Rows removed by each residual filter phase.",
		}, []string{"phase"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "statline",
			Subsystem: "engine",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 3, 10),
		}),
	}

	reg.MustRegister(
		m.CacheHits, m.CacheMisses,
		m.ProviderCalls, m.ProviderRetries, m.ProviderErrors,
		m.RateLimitWait, m.MaskRowsDropped, m.QueryDuration,
	)
	return m
}

// NewNop returns a metric set bound to a throwaway registry, for callers
// that do not care about instrumentation.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
