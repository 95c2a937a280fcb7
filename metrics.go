package permkit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "permkit",
		Subsystem: "registry",
		Name:      "cache_hits_total",
		Help:      "Number of role lookups served from the registry cache.",
	})

	registryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "permkit",
		Subsystem: "registry",
		Name:      "cache_misses_total",
		Help:      "Number of role lookups that missed the registry cache.",
	})

	registryRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "permkit",
		Subsystem: "registry",
		Name:      "rebuilds_total",
		Help:      "Number of role resolutions built from the catalog store.",
	})

	registryInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "permkit",
		Subsystem: "registry",
		Name:      "invalidations_total",
		Help:      "Number of full registry cache invalidations.",
	})

	changeSetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "permkit",
		Subsystem: "changeset",
		Name:      "size",
		Help:      "Number of atomic changes produced per change-set computation.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	inheritanceDowngrades = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "permkit",
		Subsystem: "changeset",
		Name:      "inheritance_downgrades_total",
		Help:      "Number of inherit-from-parent requests downgraded by the hierarchy guard.",
	})
)

var storeTransactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "permkit",
	Subsystem: "store",
	Name:      "transaction_duration_seconds",
	Help:      "Duration of store transactions by outcome.",
	Buckets:   prometheus.DefBuckets,
}, []string{"status"})
