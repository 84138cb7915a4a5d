package pipeline

import (
	"math/rand"
	"time"
)

// RetryPolicy decides whether a failed attempt is retried and after
// what delay. attempt is zero-based; budget is the descriptor's
// RetryBudget (additional attempts after the first).
type RetryPolicy interface {
	ShouldRetry(attempt, budget int, err error) (time.Duration, bool)
}

// ExponentialPolicy retries transient failures with exponential backoff
// and jitter. It never retries failures Retryable reports false for.
type ExponentialPolicy struct {
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay growth.
	MaxBackoff time.Duration

	// Multiplier scales the delay per attempt (default 2.0).
	Multiplier float64

	// Jitter adds up to this fraction of random extra delay (0..1).
	Jitter float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() *ExponentialPolicy {
	return &ExponentialPolicy{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

// ShouldRetry implements RetryPolicy.
func (p *ExponentialPolicy) ShouldRetry(attempt, budget int, err error) (time.Duration, bool) {
	if attempt >= budget {
		return 0, false
	}
	if !Retryable(err) {
		return 0, false
	}
	return p.backoff(attempt), true
}

func (p *ExponentialPolicy) backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30 // overflow guard
	}

	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 2.0
	}

	delay := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		delay *= multiplier
	}

	capped := time.Duration(delay)
	if capped < 0 || capped > p.MaxBackoff {
		capped = p.MaxBackoff
	}

	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		extra := time.Duration(float64(capped) * jitter * rand.Float64())
		if capped+extra <= p.MaxBackoff {
			capped += extra
		} else {
			capped = p.MaxBackoff
		}
	}
	return capped
}
