// Package metrics provides the centralized Prometheus metrics registry
// for fetchpipe. All metrics are defined in their respective packages
// (pipeline, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by fetchpipe.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/pipeline):
//   - fetchpipe_requests_total{endpoint, outcome} (Counter): Executions by endpoint and outcome
//     (success, failure, cache_hit, short_circuit, cancelled)
//   - fetchpipe_request_duration_seconds{endpoint} (Histogram): Execution duration by endpoint
//   - fetchpipe_retries_total{kind} (Counter): Retry attempts by error kind
//   - fetchpipe_retry_exhausted_total{kind} (Counter): Executions that spent their whole retry budget
//   - fetchpipe_events_total{event} (Counter): Events reported through the default counters sink
//
// Cache Metrics (pkg/cache):
//   - fetchpipe_cache_hits_total{tier} (Counter): Cache hits by tier (memory, durable)
//   - fetchpipe_cache_misses_total (Counter): Lookups absent from both tiers
//   - fetchpipe_cache_errors_total{operation} (Counter): Durable tier operation errors
//   - fetchpipe_cache_promotions_total (Counter): Durable-to-memory promotions on read
//   - fetchpipe_write_behind_queue_depth (Gauge): Operations queued for durable persistence
//   - fetchpipe_write_behind_dropped_total (Counter): Durable writes dropped after retry exhaustion
//   - fetchpipe_memory_evictions_total (Counter): Memory tier evictions under capacity pressure
//   - fetchpipe_memory_expirations_total (Counter): Memory tier removals on expired read
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(fetchpipe_cache_hits_total[5m])) /
//   (sum(rate(fetchpipe_cache_hits_total[5m])) + sum(rate(fetchpipe_cache_misses_total[5m])))
//
//   # Request Failure Rate
//   rate(fetchpipe_requests_total{outcome="failure"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(fetchpipe_request_duration_seconds_bucket[5m]))
//
//   # Write-Behind Backlog
//   fetchpipe_write_behind_queue_depth > 32
//
//   # Silent Persistence Loss
//   increase(fetchpipe_write_behind_dropped_total[1h]) > 0
