package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/soluna-labs/fetchpipe/pkg/fingerprint"
)

// Tier identifies which cache layer served a read.
type Tier string

const (
	// TierMemory is the fast in-process tier.
	TierMemory Tier = "memory"

	// TierDurable is the persistent tier.
	TierDurable Tier = "durable"
)

// CoordinatorConfig tunes the write-behind machinery.
type CoordinatorConfig struct {
	// Lanes is the number of write-behind workers. Operations for one
	// key always land on the same lane, so per-key order is preserved
	// while distinct keys persist concurrently.
	Lanes int

	// QueueDepth is the per-lane buffer. A full lane applies
	// backpressure to writers instead of dropping.
	QueueDepth int

	// MaxRetries bounds retries of a failed durable operation before
	// it is dropped and counted.
	MaxRetries int

	// InitialBackoff and MaxBackoff shape the retry delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultCoordinatorConfig returns a safe default configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Lanes:          4,
		QueueDepth:     64,
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
	}
}

// Stats is a point-in-time snapshot of coordinator counters. Durable
// tier failures never reach request callers; they show up here and in
// the Prometheus collectors instead.
type Stats struct {
	Hits          int64
	Misses        int64
	Promotions    int64
	DroppedWrites int64
	QueueDepth    int64
	MemoryEntries int
	MemoryBytes   int64
}

// Coordinator composes the memory and durable tiers into one logical
// cache: memory-first reads with promotion, synchronous memory writes,
// and asynchronous durable persistence. The write-behind workers own
// all durable writes; no other component touches the durable tier.
type Coordinator struct {
	memory  *MemoryTier
	durable DurableTier
	cfg     CoordinatorConfig
	logger  zerolog.Logger

	lanes   []chan laneOp
	wg      sync.WaitGroup
	closeMu sync.RWMutex // serializes lane sends against Close
	closed  atomic.Bool

	hits       atomic.Int64
	misses     atomic.Int64
	promotions atomic.Int64
	dropped    atomic.Int64
	depth      atomic.Int64
}

type opKind int

const (
	opPut opKind = iota
	opRemove
	opClear
)

type laneOp struct {
	kind    opKind
	key     string
	entry   *Entry
	barrier *clearBarrier
}

// clearBarrier coordinates a whole-cache clear across lanes: the last
// lane to reach it performs the durable clear while the others block on
// done, so everything enqueued before Clear is applied before the clear
// and nothing enqueued after it is applied until the clear completes.
type clearBarrier struct {
	remaining atomic.Int32
	done      chan struct{}
}

// NewCoordinator builds a coordinator over the given tiers. durable may
// be nil for a memory-only cache.
func NewCoordinator(memory *MemoryTier, durable DurableTier, cfg CoordinatorConfig, logger zerolog.Logger) *Coordinator {
	if memory == nil {
		panic("memory tier cannot be nil")
	}
	if cfg.Lanes <= 0 {
		cfg.Lanes = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 50 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	c := &Coordinator{
		memory:  memory,
		durable: durable,
		cfg:     cfg,
		logger:  logger,
	}

	if durable != nil {
		c.lanes = make([]chan laneOp, cfg.Lanes)
		for i := range c.lanes {
			c.lanes[i] = make(chan laneOp, cfg.QueueDepth)
			c.wg.Add(1)
			go c.worker(c.lanes[i])
		}
	}
	return c
}

// Read looks up key, memory tier first. A durable hit is promoted into
// memory before returning. Expired entries count as misses and are
// removed from whichever tier held them.
func (c *Coordinator) Read(ctx context.Context, key string) (*Entry, Tier, bool) {
	if entry, ok := c.memory.Get(key); ok {
		c.hits.Add(1)
		CacheHits.WithLabelValues(string(TierMemory)).Inc()
		return entry, TierMemory, true
	}

	if c.durable != nil {
		entry, err := c.durable.Get(ctx, key)
		switch {
		case err == nil:
			c.memory.Put(key, entry)
			c.hits.Add(1)
			c.promotions.Add(1)
			CacheHits.WithLabelValues(string(TierDurable)).Inc()
			Promotions.Inc()
			return entry, TierDurable, true
		case errors.Is(err, ErrCacheMiss):
			// fall through to miss
		default:
			// Storage failure reads as a miss; the pipeline refetches.
			c.logger.Warn().Err(err).Str("key", key).Msg("Durable tier read failed")
		}
	}

	c.misses.Add(1)
	CacheMisses.Inc()
	return nil, "", false
}

// Write stores entry in the memory tier synchronously and queues it for
// durable persistence. The call never waits on durable storage.
func (c *Coordinator) Write(entry *Entry) {
	c.memory.Put(entry.Key, entry)
	c.enqueue(laneOp{kind: opPut, key: entry.Key, entry: entry})
}

// Remove deletes key from memory synchronously and queues the durable
// removal behind any pending writes for the same key.
func (c *Coordinator) Remove(key string) {
	c.memory.Remove(key)
	c.enqueue(laneOp{kind: opRemove, key: key})
}

// Clear empties the memory tier immediately and schedules a durable
// clear ordered after everything already enqueued.
func (c *Coordinator) Clear() {
	c.memory.Clear()
	if c.durable == nil {
		return
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed.Load() {
		return
	}

	barrier := &clearBarrier{done: make(chan struct{})}
	barrier.remaining.Store(int32(len(c.lanes)))
	for i := range c.lanes {
		c.send(i, laneOp{kind: opClear, barrier: barrier})
	}
}

// Sweep removes expired entries from the durable tier.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	if c.durable == nil {
		return 0, nil
	}
	return c.durable.Sweep(ctx)
}

// Stats returns a snapshot of the coordinator counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Promotions:    c.promotions.Load(),
		DroppedWrites: c.dropped.Load(),
		QueueDepth:    c.depth.Load(),
		MemoryEntries: c.memory.Len(),
		MemoryBytes:   c.memory.Bytes(),
	}
}

// Close stops accepting writes and drains the write-behind queue,
// bounded by ctx.
func (c *Coordinator) Close(ctx context.Context) error {
	c.closeMu.Lock()
	if !c.closed.CompareAndSwap(false, true) {
		c.closeMu.Unlock()
		return nil
	}
	for _, lane := range c.lanes {
		close(lane)
	}
	c.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) enqueue(op laneOp) {
	if c.durable == nil {
		return
	}
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed.Load() {
		return
	}
	c.send(fingerprint.Shard(op.key, len(c.lanes)), op)
}

// send delivers op to a lane. Caller holds closeMu read-locked so the
// channel cannot be closed mid-send.
func (c *Coordinator) send(lane int, op laneOp) {
	c.depth.Add(1)
	WriteBehindDepth.Inc()
	c.lanes[lane] <- op
}

func (c *Coordinator) worker(lane chan laneOp) {
	defer c.wg.Done()
	for op := range lane {
		c.apply(op)
		c.depth.Add(-1)
		WriteBehindDepth.Dec()
	}
}

// apply runs one durable operation with bounded backoff. An operation
// that exhausts its retries is dropped: the in-memory result already
// completed, so durable persistence stays best-effort.
func (c *Coordinator) apply(op laneOp) {
	if op.kind == opClear {
		// The last lane to reach the barrier performs the durable
		// clear; the others wait for it before consuming anything
		// enqueued after Clear, so a later write is never erased by an
		// earlier clear.
		if op.barrier.remaining.Add(-1) > 0 {
			<-op.barrier.done
			return
		}
		defer close(op.barrier.done)
	}

	ctx := context.Background()
	backoff := c.cfg.InitialBackoff

	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		switch op.kind {
		case opPut:
			err = c.durable.Put(ctx, op.key, op.entry)
		case opRemove:
			err = c.durable.Remove(ctx, op.key)
		case opClear:
			err = c.durable.Clear(ctx)
		}
		if err == nil {
			return
		}
	}

	c.dropped.Add(1)
	WriteBehindDropped.Inc()
	c.logger.Warn().
		Err(err).
		Str("key", op.key).
		Int("retries", c.cfg.MaxRetries).
		Msg("Durable write dropped after retry exhaustion")
}
