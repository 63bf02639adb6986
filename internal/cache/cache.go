// Package cache provides a sharded LRU cache used to keep recently
// rasterized glyph bitmaps around across atlas resets.
package cache

import (
	"sync"
	"sync/atomic"
)

const (
	// shardCount is the number of shards; a power of two so shard
	// selection is a bitwise AND.
	shardCount = 16
	shardMask  = shardCount - 1

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 256
)

// Hasher computes the shard-selection hash for a key.
type Hasher[K any] func(K) uint64

// Stats is a snapshot of cache counters.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// lruNode is a node in a shard's doubly-linked recency list. Head is the
// most recently used entry, tail the least.
type lruNode[K comparable] struct {
	key  K
	prev *lruNode[K]
	next *lruNode[K]
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *lruNode[K]
	tail    *lruNode[K]
}

type entry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// Sharded is a thread-safe LRU cache split over 16 independently locked
// shards. Eviction happens per shard when a shard passes its capacity,
// oldest entry first.
type Sharded[K comparable, V any] struct {
	shards   [shardCount]shard[K, V]
	hasher   Hasher[K]
	capacity int

	// onEvict, when set, runs outside the shard lock for every entry
	// dropped by capacity eviction (not Delete or Clear).
	onEvict func(K, V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewSharded creates a sharded LRU with the given per-shard capacity.
// Total capacity is capacity * 16. A capacity <= 0 falls back to
// DefaultCapacity. onEvict may be nil.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K], onEvict func(K, V)) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[K, V]{
		hasher:   hasher,
		capacity: capacity,
		onEvict:  onEvict,
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*entry[K, V])
	}
	return c
}

func (c *Sharded[K, V]) shardFor(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value and refreshes its recency.
func (c *Sharded[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.moveToFront(e.node)
	v := e.value
	s.mu.Unlock()
	c.hits.Add(1)
	return v, true
}

// Set stores a value, evicting the shard's oldest entries past capacity.
func (c *Sharded[K, V]) Set(key K, value V) {
	s := c.shardFor(key)

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		e.value = value
		s.moveToFront(e.node)
		s.mu.Unlock()
		return
	}
	evicted := s.insert(key, value, c.capacity)
	s.mu.Unlock()

	c.finishEviction(evicted)
}

// GetOrCreate returns the cached value for key, calling create to fill a
// miss. create runs under the shard lock; keep it fast.
func (c *Sharded[K, V]) GetOrCreate(key K, create func() V) V {
	s := c.shardFor(key)

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.moveToFront(e.node)
		v := e.value
		s.mu.Unlock()
		c.hits.Add(1)
		return v
	}
	v := create()
	evicted := s.insert(key, v, c.capacity)
	s.mu.Unlock()

	c.misses.Add(1)
	c.finishEviction(evicted)
	return v
}

// Delete removes an entry without running the eviction hook.
func (c *Sharded[K, V]) Delete(key K) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.unlink(e.node)
	delete(s.entries, key)
	return true
}

// Clear drops every entry without running the eviction hook.
func (c *Sharded[K, V]) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.entries = make(map[K]*entry[K, V])
		s.head, s.tail = nil, nil
		s.mu.Unlock()
	}
}

// Len returns the total entry count across shards.
func (c *Sharded[K, V]) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats returns a snapshot of the cache counters.
func (c *Sharded[K, V]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

func (c *Sharded[K, V]) finishEviction(dropped []evicted[K, V]) {
	if len(dropped) == 0 {
		return
	}
	c.evictions.Add(uint64(len(dropped)))
	if c.onEvict != nil {
		for _, d := range dropped {
			c.onEvict(d.key, d.value)
		}
	}
}

// insert adds a fresh entry, returning any entries dropped to stay under
// capacity. Caller holds the shard lock.
func (s *shard[K, V]) insert(key K, value V, capacity int) []evicted[K, V] {
	var dropped []evicted[K, V]
	for len(s.entries) >= capacity && s.tail != nil {
		oldest := s.tail
		s.unlink(oldest)
		if e, ok := s.entries[oldest.key]; ok {
			dropped = append(dropped, evicted[K, V]{key: oldest.key, value: e.value})
			delete(s.entries, oldest.key)
		}
	}

	node := &lruNode[K]{key: key}
	node.next = s.head
	if s.head != nil {
		s.head.prev = node
	}
	s.head = node
	if s.tail == nil {
		s.tail = node
	}
	s.entries[key] = &entry[K, V]{value: value, node: node}
	return dropped
}

func (s *shard[K, V]) moveToFront(node *lruNode[K]) {
	if node == s.head {
		return
	}
	s.unlink(node)
	node.next = s.head
	if s.head != nil {
		s.head.prev = node
	}
	s.head = node
	if s.tail == nil {
		s.tail = node
	}
}

func (s *shard[K, V]) unlink(node *lruNode[K]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		s.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		s.tail = node.prev
	}
	node.prev, node.next = nil, nil
}
