package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits by store
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"store"}, // "memory", "redis", "ristretto"
	)

	// CacheMisses tracks misses (absent or stale) by store
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"store"},
	)

	// SharedFetches tracks callers served by another caller's in-flight fetch
	SharedFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "course_cache_shared_fetches_total",
			Help: "Total number of callers that joined an in-flight fetch",
		},
	)

	// FetchErrors tracks fetches that failed and were not cached
	FetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "course_cache_fetch_errors_total",
			Help: "Total number of failed fetches behind the cache",
		},
	)

	// CacheErrors tracks store operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_cache_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"store", "operation"}, // "get", "set", "delete"
	)

	// CacheEvictions tracks entries dropped by the memory store size cap
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "course_cache_evictions_total",
			Help: "Total number of entries evicted from the memory store",
		},
	)

	// CacheEntries tracks the number of entries held by the memory store
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "course_cache_entries",
			Help: "Current number of entries in the memory store",
		},
	)
)
