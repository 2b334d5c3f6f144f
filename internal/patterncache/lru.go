package patterncache

import (
	"container/list"
	"sync"
	"time"
)

// entry is the linked-list payload for one cached value.
type entry[V any] struct {
	key            string
	value          V
	insertedAt     time.Time
	lastAccessedAt time.Time
}

// lruTTL is a size-bounded, TTL-expiring cache with true LRU ordering:
// the most recently accessed entry is always moved to the back of the
// list, matching spec.md §4.B's PatternCacheEntry semantics.
type lruTTL[V any] struct {
	mu       sync.Mutex
	size     int
	ttl      time.Duration
	order    *list.List // back = most recently used
	elements map[string]*list.Element

	hits   int64
	misses int64
}

func newLRUTTL[V any](size int, ttl time.Duration) *lruTTL[V] {
	if size <= 0 {
		size = 1
	}
	return &lruTTL[V]{
		size:     size,
		ttl:      ttl,
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

// getOrCompile returns the cached value for key, compiling and inserting it
// on a miss (including an expired hit, which counts as a miss).
func (c *lruTTL[V]) getOrCompile(key string, compile func() (V, error)) (V, error) {
	c.mu.Lock()
	if el, ok := c.elements[key]; ok {
		e := el.Value.(*entry[V])
		if time.Since(e.insertedAt) <= c.ttl {
			e.lastAccessedAt = time.Now()
			c.order.MoveToBack(el)
			c.hits++
			v := e.value
			c.mu.Unlock()
			return v, nil
		}
		// Expired: evict before recompiling.
		c.order.Remove(el)
		delete(c.elements, key)
	}
	c.misses++
	c.mu.Unlock()

	// Opportunistic sweep: a miss is as good a time as any to drop other
	// entries that have expired since the last periodic cleanup.
	c.cleanupExpired()

	value, err := compile()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have raced us to the same key; prefer the
	// newest write rather than special-casing the race.
	now := time.Now()
	if el, ok := c.elements[key]; ok {
		el.Value.(*entry[V]).value = value
		el.Value.(*entry[V]).insertedAt = now
		el.Value.(*entry[V]).lastAccessedAt = now
		c.order.MoveToBack(el)
		return value, nil
	}
	el := c.order.PushBack(&entry[V]{key: key, value: value, insertedAt: now, lastAccessedAt: now})
	c.elements[key] = el
	c.evictIfOverCapacityLocked()
	return value, nil
}

func (c *lruTTL[V]) evictIfOverCapacityLocked() {
	for len(c.elements) > c.size {
		front := c.order.Front()
		if front == nil {
			return
		}
		e := front.Value.(*entry[V])
		c.order.Remove(front)
		delete(c.elements, e.key)
	}
}

// cleanupExpired removes entries whose TTL has elapsed; returns the count
// removed.
func (c *lruTTL[V]) cleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := time.Now()
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry[V])
		if now.Sub(e.insertedAt) > c.ttl {
			c.order.Remove(el)
			delete(c.elements, e.key)
			removed++
		}
		el = next
	}
	return removed
}

func (c *lruTTL[V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.elements = make(map[string]*list.Element)
	c.hits = 0
	c.misses = 0
}

func (c *lruTTL[V]) stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    len(c.elements),
		HitRate: rate,
	}
}
