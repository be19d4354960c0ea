package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stylerd",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total cache hits",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stylerd",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total cache misses",
		},
	)

	cacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stylerd",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total entries evicted, by reason",
		},
		[]string{"reason"},
	)

	cacheLoadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stylerd",
			Subsystem: "cache",
			Name:      "load_failures_total",
			Help:      "Total loader callback failures",
		},
	)

	cacheDoubleReleases = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stylerd",
			Subsystem: "cache",
			Name:      "double_release_total",
			Help:      "Total redundant handle releases (non-fatal)",
		},
	)

	cacheBytesUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stylerd",
			Subsystem: "cache",
			Name:      "bytes_used",
			Help:      "Bytes attributed to live entries, by pool",
		},
		[]string{"pool"},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stylerd",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of resident cache entries",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheEvictions,
		cacheLoadFailures, cacheDoubleReleases, cacheBytesUsed, cacheEntries)
}

// updateGaugesLocked refreshes the gauges from current bookkeeping.
func (c *Cache) updateGaugesLocked() {
	cacheEntries.Set(float64(len(c.entries)))
	cacheBytesUsed.WithLabelValues(PoolDevice.String()).Set(float64(c.acct.Used(PoolDevice)))
	cacheBytesUsed.WithLabelValues(PoolHost.String()).Set(float64(c.acct.Used(PoolHost)))
}
