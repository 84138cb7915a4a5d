// Package cache provides the two-tier response cache used by the
// request pipeline: a bounded in-memory tier in front of a durable
// Redis-backed tier, composed by a Coordinator.
//
// # Read path
//
// Reads check memory first. A durable hit is promoted into memory so
// the next read for the same key stays in-process. Expiration is
// evaluated at read time in both tiers; an expired entry is removed and
// the read reports a miss.
//
//	entry, tier, ok := coord.Read(ctx, key)
//	if ok {
//		// tier is cache.TierMemory or cache.TierDurable
//	}
//
// # Write path
//
// Writes land in memory synchronously and are queued for the durable
// tier on a write-behind worker pool. Operations for one key are
// applied to durable storage in enqueue order; distinct keys persist
// concurrently. A durable operation that keeps failing is retried with
// bounded backoff and finally dropped. The drop is visible in Stats()
// and the fetchpipe_write_behind_dropped_total counter, never to the
// request caller.
//
// # Memory tier
//
// The memory tier is sharded by key. Capacity is bounded in entries
// and/or bytes, with eviction (LRU by default, LFU and FIFO
// selectable) running before a new entry is admitted so the configured
// capacity is never transiently exceeded.
//
// # Metrics
//
//   - fetchpipe_cache_hits_total{tier}: hits by tier
//   - fetchpipe_cache_misses_total: misses
//   - fetchpipe_cache_errors_total{operation}: durable tier op errors
//   - fetchpipe_cache_promotions_total: durable-to-memory promotions
//   - fetchpipe_write_behind_queue_depth: pending durable operations
//   - fetchpipe_write_behind_dropped_total: dropped durable writes
//   - fetchpipe_memory_evictions_total: capacity evictions
//   - fetchpipe_memory_expirations_total: expired-on-read removals
package cache
