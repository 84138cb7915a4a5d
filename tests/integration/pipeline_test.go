package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/soluna-labs/fetchpipe/internal/testutil"
	"github.com/soluna-labs/fetchpipe/pkg/cache"
	"github.com/soluna-labs/fetchpipe/pkg/pipeline"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newCoordinator(t *testing.T, redisClient *redis.Client) *cache.Coordinator {
	t.Helper()

	coord := cache.NewCoordinator(
		cache.NewMemoryTier(cache.DefaultMemoryConfig()),
		cache.NewRedisTier(redisClient, "fetchpipe-it"),
		cache.DefaultCoordinatorConfig(),
		zerolog.Nop(),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coord.Close(ctx)
	})
	return coord
}

// drain waits for the write-behind queue to empty.
func drain(t *testing.T, coord *cache.Coordinator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if coord.Stats().QueueDepth == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("write-behind queue did not drain")
}

// TestFullRequestFlow drives one request through the complete flow:
// cache miss → dispatch → memory write → write-behind persistence →
// durable promotion after a memory restart.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	exec := testutil.NewFakeExecutor([]byte(`{"order_id": 1, "price": 100.50}`))
	coord := newCoordinator(t, redisClient)

	p, err := pipeline.New(exec, coord, pipeline.WithDefaultTTL(time.Minute))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	ctx := context.Background()
	desc := &pipeline.Descriptor{Endpoint: "/v1/markets/10000002/orders"}

	t.Log("Request 1: full flow - cache miss")
	first, err := p.Execute(ctx, desc)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if first.ServedFromCache {
		t.Error("Request 1 should have dispatched to the executor")
	}
	if exec.Calls() != 1 {
		t.Errorf("Executor calls = %d, want 1", exec.Calls())
	}

	t.Log("Request 2: memory hit")
	second, err := p.Execute(ctx, desc)
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if !second.ServedFromCache || second.CacheTier != cache.TierMemory {
		t.Errorf("Request 2 tier = %q, want memory hit", second.CacheTier)
	}
	if exec.Calls() != 1 {
		t.Errorf("Executor calls = %d, want 1 after memory hit", exec.Calls())
	}

	drain(t, coord)

	// A fresh coordinator simulates a process restart: the memory tier
	// is empty but the durable tier still holds the entry.
	t.Log("Request 3: durable hit after restart")
	restarted := newCoordinator(t, redisClient)
	p2, err := pipeline.New(exec, restarted)
	if err != nil {
		t.Fatalf("Failed to create second pipeline: %v", err)
	}

	third, err := p2.Execute(ctx, desc)
	if err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	if !third.ServedFromCache || third.CacheTier != cache.TierDurable {
		t.Errorf("Request 3 tier = %q, want durable hit", third.CacheTier)
	}
	if exec.Calls() != 1 {
		t.Errorf("Executor calls = %d, want 1 after durable hit", exec.Calls())
	}
	if string(third.Payload) != string(first.Payload) {
		t.Errorf("Durable payload = %s, want %s", third.Payload, first.Payload)
	}

	// The promotion put the entry back into memory.
	fourth, err := p2.Execute(ctx, desc)
	if err != nil {
		t.Fatalf("Request 4 failed: %v", err)
	}
	if fourth.CacheTier != cache.TierMemory {
		t.Errorf("Request 4 tier = %q, want memory after promotion", fourth.CacheTier)
	}
}

// TestInvalidationPropagates verifies Invalidate removes the entry from
// both tiers.
func TestInvalidationPropagates(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	exec := testutil.NewFakeExecutor([]byte("v1"))
	coord := newCoordinator(t, redisClient)
	p, err := pipeline.New(exec, coord)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	ctx := context.Background()
	desc := &pipeline.Descriptor{Endpoint: "/v1/profile"}

	if _, err := p.Execute(ctx, desc); err != nil {
		t.Fatalf("Seed request failed: %v", err)
	}
	drain(t, coord)

	p.Invalidate(desc.Fingerprint())
	drain(t, coord)

	result, err := p.Execute(ctx, desc)
	if err != nil {
		t.Fatalf("Post-invalidation request failed: %v", err)
	}
	if result.ServedFromCache {
		t.Error("Invalidated entry must not serve from cache")
	}
	if exec.Calls() != 2 {
		t.Errorf("Executor calls = %d, want 2", exec.Calls())
	}
}

// TestSweepRemovesExpiredEntries verifies the durable sweep drops
// expired entries and leaves fresh ones alone.
func TestSweepRemovesExpiredEntries(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	coord := newCoordinator(t, redisClient)
	ctx := context.Background()

	coord.Write(cache.NewEntry("fresh", []byte("keep"), time.Hour))
	drain(t, coord)

	// A logically-expired entry written by an earlier process: its
	// Redis TTL has not run out but its own clock has.
	stale, err := json.Marshal(&cache.Entry{
		Key:       "stale",
		Payload:   []byte("drop"),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		TTL:       time.Hour,
	})
	if err != nil {
		t.Fatalf("Marshal stale entry: %v", err)
	}
	if err := redisClient.Set(ctx, "fetchpipe-it:stale", stale, time.Hour).Err(); err != nil {
		t.Fatalf("Seed stale entry: %v", err)
	}
	if err := redisClient.Set(ctx, "fetchpipe-it:garbled", "not json", time.Hour).Err(); err != nil {
		t.Fatalf("Seed garbled entry: %v", err)
	}

	removed, err := coord.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Sweep removed %d entries, want 2", removed)
	}

	if _, err := redisClient.Get(ctx, "fetchpipe-it:stale").Result(); !errors.Is(err, redis.Nil) {
		t.Error("Stale entry should be gone after sweep")
	}
	if err := redisClient.Get(ctx, "fetchpipe-it:fresh").Err(); err != nil {
		t.Error("Fresh entry should survive the sweep")
	}
}

// TestClearEmptiesBothTiers verifies ClearAll leaves nothing behind in
// memory or Redis.
func TestClearEmptiesBothTiers(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	exec := testutil.NewFakeExecutor([]byte("x"))
	coord := newCoordinator(t, redisClient)
	p, err := pipeline.New(exec, coord)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	ctx := context.Background()
	for _, ep := range []string{"/v1/a", "/v1/b", "/v1/c"} {
		if _, err := p.Execute(ctx, &pipeline.Descriptor{Endpoint: ep}); err != nil {
			t.Fatalf("Seed request for %s failed: %v", ep, err)
		}
	}
	drain(t, coord)

	p.ClearAll()
	drain(t, coord)

	if n := p.CacheStats().MemoryEntries; n != 0 {
		t.Errorf("Memory entries after clear = %d, want 0", n)
	}

	keys, err := redisClient.Keys(ctx, "fetchpipe-it:*").Result()
	if err != nil {
		t.Fatalf("Redis KEYS failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Redis keys after clear = %v, want none", keys)
	}
}
