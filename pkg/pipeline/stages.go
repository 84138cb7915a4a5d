package pipeline

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// AuthStage injects a bearer token from the provider into each request.
// Because interceptors re-run on every retry, a provider that refreshes
// between attempts feeds fresh credentials into the next dispatch. A
// provider failure fails the attempt as a transport error, which the
// retry policy treats as transient.
func AuthStage(provider TokenProvider) Stage {
	return Stage{
		Name: "auth",
		Apply: func(ctx context.Context, d *Descriptor) (*Descriptor, *Result, error) {
			token, err := provider.CurrentToken(ctx)
			if err != nil {
				return nil, nil, &Error{
					Kind:     KindTransport,
					Message:  "token refresh failed",
					Endpoint: d.Endpoint,
					Cause:    err,
				}
			}
			if d.Headers == nil {
				d.Headers = http.Header{}
			}
			d.Headers.Set("Authorization", "Bearer "+token)
			return d, nil, nil
		},
	}
}

// tokenBucket is a minimal refill-on-demand rate limiter.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if b.refillRate > 0 {
		refill := int(now.Sub(b.lastRefill) / b.refillRate)
		if refill > 0 {
			b.tokens += refill
			if b.tokens > b.maxTokens {
				b.tokens = b.maxTokens
			}
			b.lastRefill = b.lastRefill.Add(time.Duration(refill) * b.refillRate)
		}
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// RateLimitStage fails an attempt when the local token bucket is empty.
// One token refills every refillRate. The failure is a transport error,
// so the retry policy backs off and tries again, by which time the
// bucket may have refilled.
func RateLimitStage(maxTokens int, refillRate time.Duration) Stage {
	bucket := &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
	return Stage{
		Name: "ratelimit",
		Apply: func(_ context.Context, d *Descriptor) (*Descriptor, *Result, error) {
			if !bucket.allow() {
				return nil, nil, &Error{
					Kind:     KindTransport,
					Message:  "rate limit exceeded",
					Endpoint: d.Endpoint,
				}
			}
			return d, nil, nil
		},
	}
}

// HeaderStage sets a fixed header on every request.
func HeaderStage(name, key, value string) Stage {
	return Stage{
		Name: name,
		Apply: func(_ context.Context, d *Descriptor) (*Descriptor, *Result, error) {
			if d.Headers == nil {
				d.Headers = http.Header{}
			}
			d.Headers.Set(key, value)
			return d, nil, nil
		},
	}
}
