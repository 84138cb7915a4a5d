package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DurableTier is the slow, persistent cache tier. Implementations may
// fail with storage errors; callers treat those as best-effort.
type DurableTier interface {
	// Get returns the entry for key. Expired entries are removed on
	// read and reported as ErrCacheMiss.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores entry under key. Idempotent: re-putting the same
	// entry is a no-op difference-wise.
	Put(ctx context.Context, key string, entry *Entry) error

	// Remove deletes the entry for key.
	Remove(ctx context.Context, key string) error

	// Clear removes every entry owned by this tier.
	Clear(ctx context.Context) error

	// Sweep enumerates entries and removes expired ones. A failure
	// mid-sweep returns the count removed so far; the remainder is
	// picked up by the next sweep.
	Sweep(ctx context.Context) (removed int, err error)
}

// RedisTier persists entries in Redis under a common key prefix.
type RedisTier struct {
	redis  *redis.Client
	prefix string
}

var _ DurableTier = (*RedisTier)(nil)

// NewRedisTier creates a durable tier on the given Redis client. The
// prefix namespaces fetchpipe keys within a shared Redis instance.
func NewRedisTier(redisClient *redis.Client, prefix string) *RedisTier {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "fetchpipe"
	}
	return &RedisTier{redis: redisClient, prefix: prefix}
}

func (t *RedisTier) redisKey(key string) string {
	return t.prefix + ":" + key
}

// Get retrieves the entry for key. Returns ErrCacheMiss if the key does
// not exist or the stored entry has expired.
func (t *RedisTier) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := t.redis.Get(ctx, t.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = t.Remove(ctx, key)
		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// Put stores entry with a Redis TTL matching its remaining freshness,
// so Redis reclaims stale entries even without a sweep. Entries that
// are already expired are not written.
func (t *RedisTier) Put(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.Remaining()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := t.redis.Set(ctx, t.redisKey(key), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Remove deletes the entry for key.
func (t *RedisTier) Remove(ctx context.Context, key string) error {
	if err := t.redis.Del(ctx, t.redisKey(key)).Err(); err != nil {
		CacheErrors.WithLabelValues("remove").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every entry under this tier's prefix.
func (t *RedisTier) Clear(ctx context.Context) error {
	iter := t.redis.Scan(ctx, 0, t.prefix+":*", 256).Iterator()
	for iter.Next(ctx) {
		if err := t.redis.Del(ctx, iter.Val()).Err(); err != nil {
			CacheErrors.WithLabelValues("clear").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Sweep removes expired entries under this tier's prefix. Entries that
// fail to decode are removed as well; a transport failure stops the
// sweep and leaves the remainder for the next pass.
func (t *RedisTier) Sweep(ctx context.Context) (int, error) {
	removed := 0
	iter := t.redis.Scan(ctx, 0, t.prefix+":*", 256).Iterator()
	for iter.Next(ctx) {
		data, err := t.redis.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and get
			}
			CacheErrors.WithLabelValues("sweep").Inc()
			return removed, fmt.Errorf("redis get: %w", err)
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err == nil && !entry.IsExpired() {
			continue
		}

		if err := t.redis.Del(ctx, iter.Val()).Err(); err != nil {
			CacheErrors.WithLabelValues("sweep").Inc()
			return removed, fmt.Errorf("redis del: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("sweep").Inc()
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	return removed, nil
}
