// Package metrics holds the engine's Prometheus metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine Prometheus metrics.
var (
	RebuildTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csengine",
			Name:      "rebuild_total",
			Help:      "Full model rebuilds by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	RebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "csengine",
			Name:      "rebuild_duration_seconds",
			Help:      "Full model rebuild duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	RecomputeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csengine",
			Name:      "recompute_total",
			Help:      "Per-case neighbor recomputations by outcome",
		},
		[]string{"status"},
	)

	CleanupRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csengine",
			Name:      "cleanup_removed_total",
			Help:      "Entities removed by tag-keyword cleanup",
		},
		[]string{"kind"}, // "tags" / "keywords"
	)

	SuggestTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "csengine",
			Name:      "tag_suggest_total",
			Help:      "Tag suggestion queries served",
		},
	)

	NeighborCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csengine",
			Name:      "neighbor_cache_total",
			Help:      "Neighbor-list cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registered bool

// RegisterEngineMetrics registers the engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if registered {
		return
	}
	prometheus.MustRegister(RebuildTotal)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(RecomputeTotal)
	prometheus.MustRegister(CleanupRemovedTotal)
	prometheus.MustRegister(SuggestTotal)
	prometheus.MustRegister(NeighborCacheTotal)
	registered = true
}
