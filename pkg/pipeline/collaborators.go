package pipeline

import (
	"context"
	"net/http"

	"github.com/soluna-labs/fetchpipe/pkg/cache"
)

// Response is the raw outcome of one dispatch attempt.
type Response struct {
	StatusCode int
	Payload    []byte
	Headers    http.Header
}

// Result is the single outcome delivered to the caller of Execute.
type Result struct {
	// Payload is the response body, from cache or the network.
	Payload []byte

	// StatusCode is the remote status for network results, 0 for
	// cache hits and interceptor short-circuits.
	StatusCode int

	// Headers are the response headers for network results.
	Headers http.Header

	// ServedFromCache is true when no network dispatch happened.
	ServedFromCache bool

	// CacheTier names the tier that served a cache hit.
	CacheTier cache.Tier
}

// Executor performs the actual network dispatch. It is called once per
// attempt and must honor ctx cancellation and deadline instead of
// hanging.
type Executor interface {
	Dispatch(ctx context.Context, d *Descriptor) (*Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, d *Descriptor) (*Response, error)

// Dispatch implements Executor.
func (f ExecutorFunc) Dispatch(ctx context.Context, d *Descriptor) (*Response, error) {
	return f(ctx, d)
}

// TokenProvider supplies credentials to the auth interceptor stage.
// Refresh latency is a suspension point inside the intercepting phase.
type TokenProvider interface {
	CurrentToken(ctx context.Context) (string, error)
}

// Counter names reported through the CountersSink.
const (
	MetricCacheHit       = "cache.hit"
	MetricCacheMiss      = "cache.miss"
	MetricRequestSuccess = "request.success"
	MetricRequestFailure = "request.failure"
	MetricRetry          = "request.retry"
	MetricShortCircuit   = "request.short_circuit"
)

// CountersSink receives pipeline event counts. Implementations must not
// block or fail; the pipeline fires and forgets.
type CountersSink interface {
	Increment(name string, tags map[string]string)
}

// NoopSink discards all counts.
type NoopSink struct{}

// Increment implements CountersSink.
func (NoopSink) Increment(string, map[string]string) {}

// SyncHook is notified after successful results for descriptors with
// Sync set. Invocation is fire-and-forget; failures are invisible to
// the pipeline caller.
type SyncHook interface {
	Notify(ctx context.Context, d *Descriptor, r *Result)
}

// NoopHook ignores all notifications.
type NoopHook struct{}

// Notify implements SyncHook.
func (NoopHook) Notify(context.Context, *Descriptor, *Result) {}
