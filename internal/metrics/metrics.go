// Package metrics provides Prometheus metrics for stockpulse.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequestsTotal counts provider attempts by outcome
	// (ok, empty, error, skipped).
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Name:      "provider_requests_total",
			Help:      "Total number of news provider attempts",
		},
		[]string{"provider", "outcome"},
	)

	// FallbackTierTotal counts which tier finally served a search.
	FallbackTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Name:      "fallback_tier_total",
			Help:      "Searches served, by the provider tier that produced the articles",
		},
		[]string{"provider"},
	)

	// CacheLookupsTotal counts result cache lookups.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// ContextTokens observes the estimated token size of compressed contexts.
	ContextTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stockpulse",
			Name:      "context_tokens",
			Help:      "Estimated tokens per compressed news context",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000},
		},
	)

	// LLMRequestsTotal counts insight generation calls by outcome.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Name:      "llm_requests_total",
			Help:      "Insight generation calls by outcome (ok, error)",
		},
		[]string{"outcome"},
	)
)

// RecordProviderAttempt records one provider attempt.
func RecordProviderAttempt(provider, outcome string) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordTierServed records the tier that produced a search result.
func RecordTierServed(provider string) {
	FallbackTierTotal.WithLabelValues(provider).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveContextTokens records the size of a compressed context.
func ObserveContextTokens(tokens int) {
	ContextTokens.Observe(float64(tokens))
}

// RecordLLMRequest records an insight generation call.
func RecordLLMRequest(ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	LLMRequestsTotal.WithLabelValues(outcome).Inc()
}
