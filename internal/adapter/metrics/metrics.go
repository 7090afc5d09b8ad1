package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics holds all Prometheus metrics for the record API.
type APIMetrics struct {
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheStoreErrors   prometheus.Counter
	InvalidationRuns   prometheus.Counter
	InvalidatedKeys    prometheus.Counter
	RateLimitRejected  *prometheus.CounterVec
	RateLimitFallbacks prometheus.Counter
}

// NewAPIMetrics initializes and registers the Prometheus metrics.
func NewAPIMetrics() *APIMetrics {
	return &APIMetrics{
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "record_api",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits by namespace.",
		}, []string{"namespace"}), // namespace: entity, list, search
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "record_api",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses by namespace.",
		}, []string{"namespace"}),
		CacheStoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "record_api",
			Subsystem: "cache",
			Name:      "store_errors_total",
			Help:      "Total number of cache store failures absorbed as misses.",
		}),
		InvalidationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "record_api",
			Subsystem: "cache",
			Name:      "invalidation_runs_total",
			Help:      "Total number of invalidation sets executed after writes.",
		}),
		InvalidatedKeys: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "record_api",
			Subsystem: "cache",
			Name:      "invalidated_keys_total",
			Help:      "Total number of cache keys purged by invalidation.",
		}),
		RateLimitRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "record_api",
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Total number of requests rejected by the rate limiter, by operation class.",
		}, []string{"class"}), // class: read, write, auth
		RateLimitFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "record_api",
			Subsystem: "ratelimit",
			Name:      "local_fallbacks_total",
			Help:      "Total number of rate-limit decisions taken by the local limiter while the store was unavailable.",
		}),
	}
}
