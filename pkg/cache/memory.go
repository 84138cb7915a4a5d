package cache

import (
	"sync"

	"github.com/soluna-labs/fetchpipe/pkg/cache/eviction"
	"github.com/soluna-labs/fetchpipe/pkg/fingerprint"
)

// MemoryConfig bounds the in-memory tier.
type MemoryConfig struct {
	// MaxEntries caps the total entry count. 0 disables the count cap.
	MaxEntries int

	// MaxBytes caps the total payload bytes. 0 disables the byte cap.
	MaxBytes int64

	// Policy selects the eviction strategy (default LRU).
	Policy eviction.Kind

	// Shards splits the key space to reduce lock contention. Capacity
	// budgets are divided evenly across shards. Default 16, use 1 for
	// strict global ordering of evictions.
	Shards int
}

// DefaultMemoryConfig returns a safe default configuration.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		MaxEntries: 1024,
		MaxBytes:   64 << 20,
		Policy:     eviction.LRU,
		Shards:     16,
	}
}

// MemoryTier is the fast in-process cache tier. Keys are sharded so a
// slow eviction on one shard never blocks unrelated keys. Expiration is
// checked at read time; there is no background timer.
type MemoryTier struct {
	shards []*memShard
}

type memShard struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	policy     eviction.Policy
	bytes      int64
	maxEntries int
	maxBytes   int64
}

// NewMemoryTier creates a memory tier with the given bounds. Shard
// budgets sum to exactly the configured capacity: each shard gets the
// floor share and the remainder is spread one entry (or byte) at a
// time over the first shards, so the tier as a whole can never hold
// more than MaxEntries entries or MaxBytes bytes.
func NewMemoryTier(cfg MemoryConfig) *MemoryTier {
	if cfg.Shards <= 0 {
		cfg.Shards = 16
	}
	if cfg.Policy == "" {
		cfg.Policy = eviction.LRU
	}

	// A shard with a zero budget would be unbounded (0 disables the
	// cap), so never run more shards than there is budget for.
	if cfg.MaxEntries > 0 && cfg.Shards > cfg.MaxEntries {
		cfg.Shards = cfg.MaxEntries
	}
	if cfg.MaxBytes > 0 && int64(cfg.Shards) > cfg.MaxBytes {
		cfg.Shards = int(cfg.MaxBytes)
	}

	var entryBase, entryRem int
	if cfg.MaxEntries > 0 {
		entryBase = cfg.MaxEntries / cfg.Shards
		entryRem = cfg.MaxEntries % cfg.Shards
	}
	var byteBase, byteRem int64
	if cfg.MaxBytes > 0 {
		byteBase = cfg.MaxBytes / int64(cfg.Shards)
		byteRem = cfg.MaxBytes % int64(cfg.Shards)
	}

	shards := make([]*memShard, cfg.Shards)
	for i := range shards {
		maxEntries := entryBase
		if cfg.MaxEntries > 0 && i < entryRem {
			maxEntries++
		}
		maxBytes := byteBase
		if cfg.MaxBytes > 0 && int64(i) < byteRem {
			maxBytes++
		}
		shards[i] = &memShard{
			entries:    make(map[string]*Entry),
			policy:     eviction.New(cfg.Policy),
			maxEntries: maxEntries,
			maxBytes:   maxBytes,
		}
	}
	return &MemoryTier{shards: shards}
}

func (m *MemoryTier) shard(key string) *memShard {
	return m.shards[fingerprint.Shard(key, len(m.shards))]
}

// Get returns the entry for key, or nil if absent or expired. Expired
// entries are removed on read.
func (m *MemoryTier) Get(key string) (*Entry, bool) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if entry.IsExpired() {
		s.drop(key, entry)
		memoryExpirations.Inc()
		return nil, false
	}

	s.policy.OnGet(key)
	return entry, true
}

// Put admits entry under key, evicting victims first so capacity is
// never transiently exceeded. Replacing an existing key updates the
// byte accounting in place.
func (m *MemoryTier) Put(key string, entry *Entry) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.bytes -= old.SizeBytes
		delete(s.entries, key)
		s.policy.Forget(key)
	}

	// An entry larger than the shard's whole byte budget is never
	// admitted; evicting everything would not make room.
	if s.maxBytes > 0 && entry.SizeBytes > s.maxBytes {
		return
	}

	for (s.maxEntries > 0 && len(s.entries) >= s.maxEntries) ||
		(s.maxBytes > 0 && s.bytes+entry.SizeBytes > s.maxBytes) {
		victim := s.policy.Evict()
		if victim == "" {
			break
		}
		if evicted, ok := s.entries[victim]; ok {
			s.bytes -= evicted.SizeBytes
			delete(s.entries, victim)
		}
		memoryEvictions.Inc()
	}

	s.entries[key] = entry
	s.bytes += entry.SizeBytes
	s.policy.OnPut(key)
}

// Remove deletes the entry for key if present.
func (m *MemoryTier) Remove(key string) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		s.drop(key, entry)
	}
}

// Clear removes all entries.
func (m *MemoryTier) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		for key := range s.entries {
			s.policy.Forget(key)
		}
		s.entries = make(map[string]*Entry)
		s.bytes = 0
		s.mu.Unlock()
	}
}

// Len returns the total number of cached entries.
func (m *MemoryTier) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Bytes returns the total cached payload bytes.
func (m *MemoryTier) Bytes() int64 {
	var total int64
	for _, s := range m.shards {
		s.mu.Lock()
		total += s.bytes
		s.mu.Unlock()
	}
	return total
}

// drop removes an entry and its policy bookkeeping. Caller holds s.mu.
func (s *memShard) drop(key string, entry *Entry) {
	s.bytes -= entry.SizeBytes
	delete(s.entries, key)
	s.policy.Forget(key)
}
