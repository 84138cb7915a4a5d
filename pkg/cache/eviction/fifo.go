package eviction

// fifo evicts in admission order. Reads never reorder the queue.
type fifo struct {
	queue []string
	set   map[string]struct{}
}

func newFIFO() *fifo {
	return &fifo{set: make(map[string]struct{})}
}

func (f *fifo) OnGet(string) {}

func (f *fifo) OnPut(key string) {
	if _, ok := f.set[key]; ok {
		return
	}
	f.queue = append(f.queue, key)
	f.set[key] = struct{}{}
}

func (f *fifo) Forget(key string) {
	if _, ok := f.set[key]; !ok {
		return
	}
	delete(f.set, key)
	for i, k := range f.queue {
		if k == key {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
}

func (f *fifo) Evict() string {
	// Entries removed via Forget leave no queue residue, so the front
	// of the queue is always a live key.
	if len(f.queue) == 0 {
		return ""
	}
	key := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.set, key)
	return key
}
