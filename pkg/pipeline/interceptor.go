package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
)

// Stage is one named transformation in the interceptor chain. A stage
// returns either a (possibly modified) descriptor to pass on, or a
// short-circuit Result that terminates the chain without a network
// call, or an error that fails the attempt.
type Stage struct {
	Name  string
	Apply func(ctx context.Context, d *Descriptor) (*Descriptor, *Result, error)
}

// Chain is an ordered, mutable list of stages. Mutation swaps an
// immutable slice behind an atomic pointer, so requests that already
// captured a snapshot are unaffected by later Add/Remove calls.
type Chain struct {
	mu     sync.Mutex // serializes mutations, not reads
	stages atomic.Pointer[[]Stage]
}

// NewChain builds a chain with the given stages in order.
func NewChain(stages ...Stage) *Chain {
	c := &Chain{}
	list := make([]Stage, len(stages))
	copy(list, stages)
	c.stages.Store(&list)
	return c
}

// Snapshot returns the current stage list. The returned slice is
// immutable; callers iterate it without further synchronization.
func (c *Chain) Snapshot() []Stage {
	return *c.stages.Load()
}

// Add inserts stage at position pos, or appends when pos is negative or
// past the end. Takes effect only for requests dispatched afterwards.
func (c *Chain) Add(stage Stage, pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.stages.Load()
	if pos < 0 || pos > len(current) {
		pos = len(current)
	}

	next := make([]Stage, 0, len(current)+1)
	next = append(next, current[:pos]...)
	next = append(next, stage)
	next = append(next, current[pos:]...)
	c.stages.Store(&next)
}

// Remove deletes the first stage with the given name. Returns
// ErrStageNotFound if no stage matches.
func (c *Chain) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.stages.Load()
	for i, stage := range current {
		if stage.Name == name {
			next := make([]Stage, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			c.stages.Store(&next)
			return nil
		}
	}
	return ErrStageNotFound
}

// Len returns the number of registered stages.
func (c *Chain) Len() int {
	return len(*c.stages.Load())
}

// apply runs the snapshot over a clone of d, left to right. The first
// short-circuit stops the chain.
func applyStages(ctx context.Context, stages []Stage, d *Descriptor) (*Descriptor, *Result, error) {
	current := d.Clone()
	for _, stage := range stages {
		next, short, err := stage.Apply(ctx, current)
		if err != nil {
			return nil, nil, err
		}
		if short != nil {
			return nil, short, nil
		}
		if next != nil {
			current = next
		}
	}
	return current, nil, nil
}
