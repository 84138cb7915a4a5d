package eviction

// lru keeps keys on a doubly-linked list ordered by recency. The head
// is the most recently used key, the tail the eviction candidate.
type lru struct {
	nodes map[string]*lruNode
	head  *lruNode
	tail  *lruNode
}

type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

func newLRU() *lru {
	return &lru{nodes: make(map[string]*lruNode)}
}

func (l *lru) OnGet(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		l.pushFront(n)
	}
}

func (l *lru) OnPut(key string) {
	if _, ok := l.nodes[key]; ok {
		return
	}
	n := &lruNode{key: key}
	l.nodes[key] = n
	l.pushFront(n)
}

func (l *lru) Forget(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		delete(l.nodes, key)
	}
}

func (l *lru) Evict() string {
	if l.tail == nil {
		return ""
	}
	key := l.tail.key
	l.unlink(l.tail)
	delete(l.nodes, key)
	return key
}

func (l *lru) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lru) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
