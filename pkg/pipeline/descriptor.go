package pipeline

import (
	"fmt"
	"net/http"
	"time"

	"github.com/soluna-labs/fetchpipe/pkg/fingerprint"
)

// Descriptor describes one outbound call. The zero value is not valid;
// at minimum Endpoint must be set. Fields left zero pick up pipeline
// defaults at execution time.
type Descriptor struct {
	// Endpoint is the logical target, e.g. "/v1/users/42".
	Endpoint string

	// Method is the request verb (default "GET").
	Method string

	// Headers are sent with the request. Interceptor stages may add
	// or rewrite them.
	Headers http.Header

	// Body is the optional request payload.
	Body []byte

	// CacheKey overrides the derived fingerprint. Callers may alias
	// distinct bodies onto one cache slot this way. Once a descriptor
	// is dispatched the key never changes.
	CacheKey string

	// TTL is the freshness window for a cached result.
	TTL time.Duration

	// RetryBudget is the number of additional attempts after the
	// first. Negative values are rejected. Zero picks up the pipeline
	// default; set NoRetry to force a single attempt regardless.
	RetryBudget int

	// NoRetry forces a single dispatch attempt even when the pipeline
	// carries a default retry budget.
	NoRetry bool

	// Timeout bounds each individual dispatch attempt, not the whole
	// pipeline run.
	Timeout time.Duration

	// Sync schedules the synchronization hook after a successful
	// result, fire-and-forget.
	Sync bool

	// NoCache skips both cache lookup and persistence for this call.
	NoCache bool
}

// Validate checks the descriptor before any cache or network access.
func (d *Descriptor) Validate() error {
	if d.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if d.RetryBudget < 0 {
		return fmt.Errorf("retry budget must be >= 0 (got %d)", d.RetryBudget)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", d.Timeout)
	}
	return nil
}

// Fingerprint returns the cache key for this descriptor: the explicit
// CacheKey when set, otherwise a stable digest of method, endpoint and
// body. An unset method digests as "GET", matching the default applied
// at execution time, so the key a caller computes is the key the
// pipeline cached under.
func (d *Descriptor) Fingerprint() string {
	if d.CacheKey != "" {
		return d.CacheKey
	}
	method := d.Method
	if method == "" {
		method = "GET"
	}
	return fingerprint.Key(method, d.Endpoint, d.Body)
}

// Clone returns a deep copy. Interceptor stages mutate copies so a
// retry always restarts from the original descriptor.
func (d *Descriptor) Clone() *Descriptor {
	clone := *d
	if d.Headers != nil {
		clone.Headers = d.Headers.Clone()
	}
	if d.Body != nil {
		clone.Body = make([]byte, len(d.Body))
		copy(clone.Body, d.Body)
	}
	return &clone
}
