package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by tier (memory, durable).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchpipe_cache_hits_total",
			Help: "Total number of cache hits by tier",
		},
		[]string{"tier"},
	)

	// CacheMisses tracks lookups absent from both tiers.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetchpipe_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheErrors tracks durable tier operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchpipe_cache_errors_total",
			Help: "Total number of durable tier operation errors",
		},
		[]string{"operation"}, // "get", "put", "remove", "clear", "sweep"
	)

	// Promotions tracks entries copied from the durable tier into
	// memory on read.
	Promotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetchpipe_cache_promotions_total",
			Help: "Total number of durable-to-memory promotions",
		},
	)

	// WriteBehindDepth gauges operations waiting for the write-behind
	// workers.
	WriteBehindDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetchpipe_write_behind_queue_depth",
			Help: "Operations currently queued for durable persistence",
		},
	)

	// WriteBehindDropped counts durable writes abandoned after retry
	// exhaustion. These never surface to request callers.
	WriteBehindDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetchpipe_write_behind_dropped_total",
			Help: "Durable writes dropped after exhausting retries",
		},
	)

	memoryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetchpipe_memory_evictions_total",
			Help: "Entries evicted from the memory tier under capacity pressure",
		},
	)

	memoryExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetchpipe_memory_expirations_total",
			Help: "Entries removed from the memory tier on expired read",
		},
	)
)
