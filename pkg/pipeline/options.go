package pipeline

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithDefaultTTL sets the cache TTL used when a descriptor leaves TTL
// zero.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.defaultTTL = ttl
	}
}

// WithDefaultRetryBudget sets the retry budget applied to descriptors
// that leave it zero. A descriptor may still set 0 explicitly via
// NoRetry.
func WithDefaultRetryBudget(budget int) Option {
	return func(p *Pipeline) {
		p.defaultRetryBudget = budget
	}
}

// WithDefaultTimeout sets the per-attempt timeout used when a
// descriptor leaves Timeout zero.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.defaultTimeout = timeout
	}
}

// WithRetryPolicy replaces the default exponential backoff policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithStages registers interceptor stages in order.
func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) {
		p.chain = NewChain(stages...)
	}
}

// WithCountersSink replaces the default Prometheus-backed sink.
func WithCountersSink(sink CountersSink) Option {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// WithSyncHook sets the hook notified for descriptors with Sync set.
func WithSyncHook(hook SyncHook) Option {
	return func(p *Pipeline) {
		p.hook = hook
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithCoalescing makes concurrent cache misses for the same fingerprint
// share a single dispatch instead of each hitting the network. Off by
// default.
func WithCoalescing() Option {
	return func(p *Pipeline) {
		p.coalesce = true
	}
}
