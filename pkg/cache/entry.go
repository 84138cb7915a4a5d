package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one cached payload. Entries are immutable: a refresh for the
// same key replaces the entry wholesale with a new CreatedAt.
type Entry struct {
	// Key is the fingerprint this entry is stored under.
	Key string `json:"key"`

	// Payload is the cached response body.
	Payload []byte `json:"payload"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// TTL is how long the entry stays fresh after CreatedAt.
	TTL time.Duration `json:"ttl"`

	// SizeBytes is the payload size, tracked for byte budgets.
	SizeBytes int64 `json:"size_bytes"`
}

// NewEntry builds an entry for key with the given payload and TTL.
func NewEntry(key string, payload []byte, ttl time.Duration) *Entry {
	return &Entry{
		Key:       key,
		Payload:   payload,
		CreatedAt: time.Now(),
		TTL:       ttl,
		SizeBytes: int64(len(payload)),
	}
}

// IsExpired returns true once the entry's TTL has elapsed.
func (e *Entry) IsExpired() bool {
	return time.Since(e.CreatedAt) > e.TTL
}

// ExpiresAt returns the instant the entry becomes stale.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Remaining returns the time until expiration, or 0 if already expired.
func (e *Entry) Remaining() time.Duration {
	left := time.Until(e.ExpiresAt())
	if left < 0 {
		return 0
	}
	return left
}

// Decode unmarshals the entry payload into T. Payloads are decoded at
// the boundary; the cache itself only carries bytes.
func Decode[T any](e *Entry) (T, error) {
	var v T
	if e == nil {
		return v, fmt.Errorf("decode: nil entry")
	}
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("decode cache payload: %w", err)
	}
	return v, nil
}

// Encode marshals v into a payload suitable for caching.
func Encode[T any](v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode cache payload: %w", err)
	}
	return data, nil
}
