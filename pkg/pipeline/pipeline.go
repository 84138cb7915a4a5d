package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/soluna-labs/fetchpipe/pkg/cache"
)

// Pipeline executes outbound calls through the cache-coordinated
// request flow: fingerprint, cache lookup, interceptor chain, dispatch
// with retry, cache persistence, completion. It is safe for concurrent
// use; each Execute call is an independent invocation.
type Pipeline struct {
	coordinator *cache.Coordinator
	executor    Executor
	chain       *Chain
	policy      RetryPolicy
	sink        CountersSink
	hook        SyncHook
	logger      zerolog.Logger

	coalesce bool
	group    singleflight.Group

	defaultTTL         time.Duration
	defaultRetryBudget int
	defaultTimeout     time.Duration
}

// New builds a pipeline over the given executor and cache coordinator.
func New(executor Executor, coordinator *cache.Coordinator, opts ...Option) (*Pipeline, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("cache coordinator is required")
	}

	p := &Pipeline{
		coordinator:    coordinator,
		executor:       executor,
		chain:          NewChain(),
		policy:         DefaultRetryPolicy(),
		sink:           PrometheusSink{},
		hook:           NoopHook{},
		logger:         zerolog.Nop(),
		defaultTTL:     5 * time.Minute,
		defaultTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AddStage registers an interceptor stage at position pos (negative
// appends). In-flight requests keep the chain snapshot captured at
// dispatch time.
func (p *Pipeline) AddStage(stage Stage, pos int) {
	p.chain.Add(stage, pos)
}

// RemoveStage removes the named stage from the chain.
func (p *Pipeline) RemoveStage(name string) error {
	return p.chain.Remove(name)
}

// Invalidate removes the entry for cacheKey from both tiers.
func (p *Pipeline) Invalidate(cacheKey string) {
	p.coordinator.Remove(cacheKey)
}

// ClearAll empties both cache tiers.
func (p *Pipeline) ClearAll() {
	p.coordinator.Clear()
}

// CacheStats exposes cache diagnostics, including failures the pipeline
// absorbed.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.coordinator.Stats()
}

// Execute runs one call through the pipeline and delivers exactly one
// result: a *Result or a classified error, never both. Cancellation of
// ctx takes effect at the next suspension point.
func (p *Pipeline) Execute(ctx context.Context, d *Descriptor) (*Result, error) {
	desc := p.withDefaults(d)
	if err := desc.Validate(); err != nil {
		p.sink.Increment(MetricRequestFailure, map[string]string{"kind": string(KindConfiguration)})
		return nil, &Error{Kind: KindConfiguration, Message: err.Error(), Endpoint: desc.Endpoint}
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(desc.Endpoint).Observe(time.Since(start).Seconds())
	}()

	key := desc.Fingerprint()
	cacheable := !desc.NoCache

	if cacheable {
		if entry, tier, ok := p.coordinator.Read(ctx, key); ok {
			p.sink.Increment(MetricCacheHit, map[string]string{"tier": string(tier)})
			requestsTotal.WithLabelValues(desc.Endpoint, "cache_hit").Inc()
			p.logger.Debug().
				Str("endpoint", desc.Endpoint).
				Str("key", key).
				Str("tier", string(tier)).
				Msg("Cache hit")
			return &Result{
				Payload:         entry.Payload,
				ServedFromCache: true,
				CacheTier:       tier,
			}, nil
		}
		p.sink.Increment(MetricCacheMiss, nil)
	}

	if p.coalesce && cacheable {
		v, err, _ := p.group.Do(key, func() (any, error) {
			return p.fetch(ctx, desc, key, cacheable)
		})
		if err != nil {
			return nil, err
		}
		return v.(*Result), nil
	}
	return p.fetch(ctx, desc, key, cacheable)
}

// fetch drives the intercept → dispatch → retry loop for a cache miss.
func (p *Pipeline) fetch(ctx context.Context, desc *Descriptor, key string, cacheable bool) (*Result, error) {
	stages := p.chain.Snapshot()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, p.cancelled(desc, attempt, err)
		}

		// Interceptors re-run on every attempt so stages like auth can
		// refresh state between tries. The fingerprint never changes.
		applied, short, err := applyStages(ctx, stages, desc)
		if err == nil && short != nil {
			p.sink.Increment(MetricShortCircuit, nil)
			requestsTotal.WithLabelValues(desc.Endpoint, "short_circuit").Inc()
			return short, nil
		}

		var attemptErr error
		if err != nil {
			attemptErr = err
		} else {
			resp, dispatchErr := p.dispatch(ctx, applied)
			attemptErr = p.classify(ctx, desc, attempt, resp, dispatchErr)
			if attemptErr == nil {
				return p.succeed(desc, key, resp, cacheable), nil
			}
		}

		if ctx.Err() != nil {
			return nil, p.cancelled(desc, attempt, ctx.Err())
		}

		budget := desc.RetryBudget
		delay, retry := p.policy.ShouldRetry(attempt, budget, attemptErr)
		if !retry {
			return nil, p.fail(desc, attempt, budget, attemptErr)
		}

		p.sink.Increment(MetricRetry, nil)
		retriesTotal.WithLabelValues(string(errKind(attemptErr))).Inc()
		p.logger.Debug().
			Str("endpoint", desc.Endpoint).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(attemptErr).
			Msg("Retrying after backoff")

		select {
		case <-ctx.Done():
			return nil, p.cancelled(desc, attempt, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// dispatch runs one attempt under the per-attempt timeout.
func (p *Pipeline) dispatch(ctx context.Context, desc *Descriptor) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, desc.Timeout)
	defer cancel()
	return p.executor.Dispatch(attemptCtx, desc)
}

// classify turns a dispatch outcome into nil (success) or a typed
// failure.
func (p *Pipeline) classify(ctx context.Context, desc *Descriptor, attempt int, resp *Response, err error) error {
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return &Error{Kind: KindCancelled, Endpoint: desc.Endpoint, Attempt: attempt, Cause: err}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// Per-attempt timeout: transient.
			return &Error{Kind: KindTransport, Message: "attempt timed out", Endpoint: desc.Endpoint, Attempt: attempt, Cause: err}
		}
		var pe *Error
		if errors.As(err, &pe) {
			return err
		}
		return &Error{Kind: KindTransport, Message: "dispatch failed", Endpoint: desc.Endpoint, Attempt: attempt, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return &Error{
			Kind:       KindProtocol,
			StatusCode: resp.StatusCode,
			Endpoint:   desc.Endpoint,
			Attempt:    attempt,
		}
	}
	return nil
}

func (p *Pipeline) succeed(desc *Descriptor, key string, resp *Response, cacheable bool) *Result {
	if cacheable {
		p.coordinator.Write(cache.NewEntry(key, resp.Payload, desc.TTL))
	}

	result := &Result{
		Payload:    resp.Payload,
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
	}

	if desc.Sync {
		// Fire-and-forget: the caller never waits on the hook and
		// never sees its failure.
		go p.hook.Notify(context.Background(), desc.Clone(), result)
	}

	p.sink.Increment(MetricRequestSuccess, nil)
	requestsTotal.WithLabelValues(desc.Endpoint, "success").Inc()
	return result
}

func (p *Pipeline) fail(desc *Descriptor, attempt, budget int, err error) error {
	kind := errKind(err)
	p.sink.Increment(MetricRequestFailure, map[string]string{"kind": string(kind)})
	requestsTotal.WithLabelValues(desc.Endpoint, "failure").Inc()

	if attempt >= budget && Retryable(err) {
		retryExhaustedTotal.WithLabelValues(string(kind)).Inc()
		p.logger.Warn().
			Str("endpoint", desc.Endpoint).
			Int("attempts", attempt+1).
			Err(err).
			Msg("Retry budget exhausted")
		return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt+1, err)
	}

	p.logger.Warn().
		Str("endpoint", desc.Endpoint).
		Str("kind", string(kind)).
		Err(err).
		Msg("Request failed")
	return err
}

func (p *Pipeline) cancelled(desc *Descriptor, attempt int, cause error) error {
	requestsTotal.WithLabelValues(desc.Endpoint, "cancelled").Inc()
	return &Error{Kind: KindCancelled, Endpoint: desc.Endpoint, Attempt: attempt, Cause: cause}
}

// withDefaults clones d and fills unset fields from pipeline defaults.
func (p *Pipeline) withDefaults(d *Descriptor) *Descriptor {
	desc := d.Clone()
	if desc.Method == "" {
		desc.Method = "GET"
	}
	if desc.TTL == 0 {
		desc.TTL = p.defaultTTL
	}
	// Only the zero value picks up a default; explicit negatives are
	// rejected by Validate.
	if desc.Timeout == 0 {
		desc.Timeout = p.defaultTimeout
	}
	if desc.NoRetry {
		desc.RetryBudget = 0
	} else if desc.RetryBudget == 0 {
		desc.RetryBudget = p.defaultRetryBudget
	}
	return desc
}

func errKind(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}
