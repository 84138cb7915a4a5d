// Package testutil provides fakes for pipeline and cache tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/soluna-labs/fetchpipe/pkg/pipeline"
)

// ScriptedResponse defines one step of a FakeExecutor script.
type ScriptedResponse struct {
	Response *pipeline.Response
	Err      error
	Delay    time.Duration
}

// FakeExecutor is a scriptable network executor. Each dispatch consumes
// the next scripted step; when the script is exhausted the last step
// repeats. With an empty script every dispatch returns a 200 response
// with the Body payload.
type FakeExecutor struct {
	mu     sync.Mutex
	script []ScriptedResponse
	calls  int

	// Body is the payload returned when no script is configured.
	Body []byte

	// LastDescriptor records the descriptor of the most recent dispatch.
	LastDescriptor *pipeline.Descriptor
}

// NewFakeExecutor creates an executor that always succeeds with body.
func NewFakeExecutor(body []byte) *FakeExecutor {
	return &FakeExecutor{Body: body}
}

// Script replaces the response script and resets the call counter.
func (f *FakeExecutor) Script(steps ...ScriptedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = steps
	f.calls = 0
}

// Dispatch implements pipeline.Executor.
func (f *FakeExecutor) Dispatch(ctx context.Context, desc *pipeline.Descriptor) (*pipeline.Response, error) {
	f.mu.Lock()
	step := ScriptedResponse{}
	if len(f.script) > 0 {
		i := f.calls
		if i >= len(f.script) {
			i = len(f.script) - 1
		}
		step = f.script[i]
	} else {
		step.Response = &pipeline.Response{StatusCode: 200, Payload: f.Body}
	}
	f.calls++
	f.LastDescriptor = desc
	f.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return step.Response, step.Err
}

// Calls returns the number of dispatches so far.
func (f *FakeExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// RecordingSink captures counter increments for assertions.
type RecordingSink struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{counts: make(map[string]int)}
}

// Increment implements pipeline.CountersSink.
func (s *RecordingSink) Increment(name string, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name]++
}

// Count returns how often name was incremented.
func (s *RecordingSink) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

// RecordingHook captures sync notifications for assertions.
type RecordingHook struct {
	mu    sync.Mutex
	fired []string
	done  chan struct{}
}

// NewRecordingHook creates a hook that closes its Done channel after
// the first notification.
func NewRecordingHook() *RecordingHook {
	return &RecordingHook{done: make(chan struct{})}
}

// Notify implements pipeline.SyncHook.
func (h *RecordingHook) Notify(ctx context.Context, desc *pipeline.Descriptor, result *pipeline.Result) {
	h.mu.Lock()
	h.fired = append(h.fired, desc.Endpoint)
	if len(h.fired) == 1 {
		close(h.done)
	}
	h.mu.Unlock()
}

// Done is closed once the hook has fired at least once.
func (h *RecordingHook) Done() <-chan struct{} {
	return h.done
}

// Endpoints returns the endpoints of all notifications so far.
func (h *RecordingHook) Endpoints() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.fired))
	copy(out, h.fired)
	return out
}
