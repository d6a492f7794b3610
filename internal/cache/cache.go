// Package cache is a small in-process TTL cache for computed reports.
package cache

import (
	"sort"
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
	stored  time.Time
}

// TTL maps keys to values that expire after a fixed duration. When MaxItems is exceeded
// the oldest tenth of the entries is evicted. Safe for concurrent use.
type TTL[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]entry[V]
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

// New returns a cache whose entries live for ttl. maxItems <= 0 disables the size bound.
func New[K comparable, V any](ttl time.Duration, maxItems int) *TTL[K, V] {
	return &TTL[K, V]{
		items:    make(map[K]entry[V]),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Get returns the live value stored under key.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expires) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = entry[V]{value: value, expires: now.Add(c.ttl), stored: now}
	if c.maxItems > 0 && len(c.items) > c.maxItems {
		c.evictOldest(max(1, len(c.items)/10))
	}
}

// DeleteFunc removes every entry whose key matches fn.
func (c *TTL[K, V]) DeleteFunc(fn func(K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if fn(k) {
			delete(c.items, k)
		}
	}
}

func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *TTL[K, V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *TTL[K, V]) evictOldest(n int) {
	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.items[keys[i]].stored.Before(c.items[keys[j]].stored)
	})
	for _, k := range keys[:min(n, len(keys))] {
		delete(c.items, k)
	}
}
