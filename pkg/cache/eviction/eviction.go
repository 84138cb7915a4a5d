// Package eviction provides pluggable capacity-eviction strategies for
// the in-memory cache tier.
package eviction

// Policy tracks key access so the cache can pick a victim when it is
// full. Implementations are not safe for concurrent use; the owning
// shard serializes calls under its own lock.
type Policy interface {
	// OnGet records a read of key. Recency/frequency based policies
	// update their bookkeeping here; FIFO ignores it.
	OnGet(key string)

	// OnPut records the admission of a new key.
	OnPut(key string)

	// Forget drops bookkeeping for a key removed outside of eviction
	// (explicit removal or expiration).
	Forget(key string)

	// Evict picks a victim, removes it from the policy's bookkeeping,
	// and returns it. Returns "" when nothing is tracked.
	Evict() string
}

// Kind selects an eviction strategy.
type Kind string

const (
	// LRU evicts the key unread for the longest time.
	LRU Kind = "lru"

	// LFU evicts the key read the fewest times.
	LFU Kind = "lfu"

	// FIFO evicts the oldest admitted key regardless of reads.
	FIFO Kind = "fifo"
)

// New returns a fresh policy of the given kind. Unknown kinds fall back
// to LRU.
func New(kind Kind) Policy {
	switch kind {
	case LFU:
		return newLFU()
	case FIFO:
		return newFIFO()
	default:
		return newLRU()
	}
}
