// Package ttlcache provides a generic map with per-entry expiry and a
// background sweep, used for the worker's user-session tracking.
package ttlcache

import (
	"sync"
	"time"

	"github.com/tachyoncache/tachyon/internal/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL-bounded map. A zero TTL disables expiry entirely: entries
// live until explicitly deleted.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]

	ttl     time.Duration
	clk     clock.Clock
	onEvict func(K, V)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a cache whose entries expire ttl after their last Set, swept
// every cleanupInterval by a background goroutine driven by clk. Passing
// ttl == 0 disables expiry (Cleanup never removes anything and Get never
// reports an entry as expired).
func New[K comparable, V any](clk clock.Clock, ttl, cleanupInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items:  make(map[K]entry[V]),
		ttl:    ttl,
		clk:    clk,
		stopCh: make(chan struct{}),
	}

	if ttl > 0 && cleanupInterval > 0 {
		go c.sweepLoop(cleanupInterval)
	}

	return c
}

// OnEvict registers a callback invoked (outside the cache's lock) whenever
// the background sweep removes an expired entry. Used by worker.Users to
// remove an expired session's temp folders.
func (c *Cache[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Set inserts or overwrites the value for key, resetting its expiry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{value: value, expiresAt: c.expiryFor()}
}

// Get returns the value for key and whether it was present and unexpired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key unconditionally. It is a no-op if key is absent.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of entries currently stored, including any that
// have expired but have not yet been swept.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stop halts the background sweep goroutine. Safe to call more than once.
func (c *Cache[K, V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Cache[K, V]) expiryFor() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.clk.Now().Add(c.ttl)
}

func (c *Cache[K, V]) expired(e entry[V]) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.clk.Now().After(e.expiresAt)
}

func (c *Cache[K, V]) sweepLoop(cleanupInterval time.Duration) {
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.clk.After(cleanupInterval):
			c.sweep()
		}
	}
}

func (c *Cache[K, V]) sweep() {
	type evicted[K comparable, V any] struct {
		key K
		val V
	}

	c.mu.Lock()
	var gone []evicted[K, V]
	for k, e := range c.items {
		if c.expired(e) {
			gone = append(gone, evicted[K, V]{key: k, val: e.value})
			delete(c.items, k)
		}
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict == nil {
		return
	}
	for _, g := range gone {
		onEvict(g.key, g.val)
	}
}
