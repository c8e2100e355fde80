// Package cache holds parsed documents so repeated tool calls on the same
// text skip tokenizing and fingerprint decoding.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key      string
	value    V
	size     int64
	storedAt time.Time
}

// LRU is a thread-safe least-recently-used cache bounded by item count and
// total size. A zero limit means unlimited.
type LRU[V any] struct {
	mu           sync.Mutex
	maxItems     int
	maxSizeBytes int64
	currentSize  int64
	items        map[string]*list.Element
	order        *list.List

	hits      int64
	misses    int64
	evictions int64
}

func NewLRU[V any](maxItems int, maxSizeBytes int64) *LRU[V] {
	return &LRU[V]{
		maxItems:     maxItems,
		maxSizeBytes: maxSizeBytes,
		items:        make(map[string]*list.Element),
		order:        list.New(),
	}
}

// Get returns the value for key and when it was stored.
func (c *LRU[V]) Get(key string) (V, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, time.Time{}, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	e := elem.Value.(*entry[V])
	return e.value, e.storedAt, true
}

// Put adds or replaces key. size is the approximate size of value in bytes.
func (c *LRU[V]) Put(key string, value V, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		e := elem.Value.(*entry[V])
		c.currentSize += size - e.size
		e.value = value
		e.size = size
		e.storedAt = now
		c.evict()
		return
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, size: size, storedAt: now})
	c.currentSize += size
	c.evict()
}

// evict drops least recently used entries until both limits hold. The most
// recent entry always survives, even when it alone exceeds the size limit.
func (c *LRU[V]) evict() {
	for c.order.Len() > 1 {
		over := (c.maxItems > 0 && c.order.Len() > c.maxItems) ||
			(c.maxSizeBytes > 0 && c.currentSize > c.maxSizeBytes)
		if !over {
			return
		}
		c.remove(c.order.Back())
		c.evictions++
	}
}

func (c *LRU[V]) remove(elem *list.Element) {
	c.order.Remove(elem)
	e := elem.Value.(*entry[V])
	delete(c.items, e.key)
	c.currentSize -= e.size
}

// Delete removes key and reports whether it was present.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
		return true
	}
	return false
}

func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.currentSize = 0
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Stats describes cache occupancy and effectiveness.
type Stats struct {
	Items     int     `json:"items"`
	Size      int64   `json:"size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Items:     c.order.Len(),
		Size:      c.currentSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}
