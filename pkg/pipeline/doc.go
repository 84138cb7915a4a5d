// Package pipeline implements the cache-coordinated request execution
// core: an outbound call flows through fingerprinting, a two-tier cache
// lookup, an ordered interceptor chain, network dispatch with retry and
// per-attempt timeouts, cache persistence, and exactly-once completion.
//
// # Execution flow
//
//	caller → Execute → fingerprint → cache read
//	   hit  → Result{ServedFromCache: true}
//	   miss → interceptors → executor dispatch → retry loop
//	        → cache write (write-behind) → Result
//
// A cache hit never touches the network; interceptors and the retry
// policy never run for it. An interceptor stage may short-circuit with
// a synthetic result, which also skips the network. Transient failures
// (transport errors, timeouts, 5xx, 429) are retried with exponential
// backoff up to the descriptor's retry budget; configuration, decoding
// and client-class protocol errors surface immediately.
//
// # Collaborators
//
// The network executor, token provider, counters sink and sync hook
// are interfaces injected at construction. Defaults: no interceptors,
// Prometheus-backed sink, no-op hook. All collaborators are
// instance-scoped; there is no process-global pipeline.
//
// # Basic usage
//
//	coord := cache.NewCoordinator(
//		cache.NewMemoryTier(cache.DefaultMemoryConfig()),
//		cache.NewRedisTier(redisClient, "myapp"),
//		cache.DefaultCoordinatorConfig(),
//		logging.NewLogger("cache"),
//	)
//	p, err := pipeline.New(executor, coord,
//		pipeline.WithDefaultTTL(time.Minute),
//		pipeline.WithDefaultRetryBudget(2),
//		pipeline.WithStages(pipeline.AuthStage(tokens)),
//	)
//	result, err := p.Execute(ctx, &pipeline.Descriptor{
//		Endpoint: "/v1/users/42",
//	})
package pipeline
