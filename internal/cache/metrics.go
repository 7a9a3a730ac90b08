package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of one Cache.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     *prometheus.CounterVec
	errors        prometheus.Counter
	invalidations prometheus.Counter
	bytes         prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "infra_memory",
			Subsystem: "query_cache",
			Name:      "hits_total",
			Help:      "Total number of query cache hits",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "infra_memory",
			Subsystem: "query_cache",
			Name:      "misses_total",
			Help:      "Total number of query cache misses",
		}),
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infra_memory",
			Subsystem: "query_cache",
			Name:      "evictions_total",
			Help:      "Total number of evicted entries by reason",
		}, []string{"reason"}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "infra_memory",
			Subsystem: "query_cache",
			Name:      "errors_total",
			Help:      "Total number of cache failures that fell back to the query",
		}),
		invalidations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "infra_memory",
			Subsystem: "query_cache",
			Name:      "invalidated_entries_total",
			Help:      "Total number of entries removed by tag invalidation",
		}),
		bytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "infra_memory",
			Subsystem: "query_cache",
			Name:      "size_bytes",
			Help:      "Approximate size of all cached entries",
		}),
	}
}
