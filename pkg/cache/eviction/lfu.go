package eviction

// lfu buckets keys by access count. minFreq tracks the smallest bucket
// so eviction never scans the whole map.
type lfu struct {
	freqs   map[string]int
	buckets map[int]map[string]struct{}
	minFreq int
}

func newLFU() *lfu {
	return &lfu{
		freqs:   make(map[string]int),
		buckets: make(map[int]map[string]struct{}),
	}
}

func (l *lfu) OnGet(key string) {
	freq, ok := l.freqs[key]
	if !ok {
		return
	}

	delete(l.buckets[freq], key)
	if len(l.buckets[freq]) == 0 {
		delete(l.buckets, freq)
		if l.minFreq == freq {
			l.minFreq++
		}
	}

	l.freqs[key] = freq + 1
	l.bucket(freq + 1)[key] = struct{}{}
}

func (l *lfu) OnPut(key string) {
	if _, ok := l.freqs[key]; ok {
		return
	}
	l.freqs[key] = 1
	l.bucket(1)[key] = struct{}{}
	l.minFreq = 1
}

func (l *lfu) Forget(key string) {
	freq, ok := l.freqs[key]
	if !ok {
		return
	}
	delete(l.buckets[freq], key)
	if len(l.buckets[freq]) == 0 {
		delete(l.buckets, freq)
	}
	delete(l.freqs, key)
}

// Evict removes one key from the lowest-frequency bucket. Ties are
// broken arbitrarily.
func (l *lfu) Evict() string {
	for key := range l.buckets[l.minFreq] {
		delete(l.buckets[l.minFreq], key)
		if len(l.buckets[l.minFreq]) == 0 {
			delete(l.buckets, l.minFreq)
		}
		delete(l.freqs, key)
		return key
	}

	// minFreq may be stale after Forget; rescan for the smallest
	// populated bucket so the victim is still a least-used key.
	lowest := -1
	for freq, bucket := range l.buckets {
		if len(bucket) == 0 {
			delete(l.buckets, freq)
			continue
		}
		if lowest == -1 || freq < lowest {
			lowest = freq
		}
	}
	if lowest == -1 {
		return ""
	}
	l.minFreq = lowest
	for key := range l.buckets[lowest] {
		delete(l.buckets[lowest], key)
		if len(l.buckets[lowest]) == 0 {
			delete(l.buckets, lowest)
		}
		delete(l.freqs, key)
		return key
	}
	return ""
}

func (l *lfu) bucket(freq int) map[string]struct{} {
	if l.buckets[freq] == nil {
		l.buckets[freq] = make(map[string]struct{})
	}
	return l.buckets[freq]
}
