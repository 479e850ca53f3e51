// Package registry implements the reputation layer: lookups of phone and
// account identifiers against remote fraud registries, fronted by a bounded
// TTL cache and a session whose validity is managed with double-checked
// locking.
package registry

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// TTLCache is a size-bounded cache with per-entry expiry. TTL and LRU are
// independent: an entry can be evicted early for space or expire early for
// staleness, whichever comes first. All methods are safe for concurrent
// use; the critical sections are short (map + list operations only).
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*list.Element
	order      *list.List // front = most recently used
	ttl        time.Duration
	maxEntries int

	// now is replaceable for tests.
	now func() time.Time
}

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// NewTTLCache creates a cache holding at most maxEntries values, each valid
// for ttl after insertion.
func NewTTLCache[K comparable, V any](maxEntries int, ttl time.Duration) *TTLCache[K, V] {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TTLCache[K, V]{
		entries:    make(map[K]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value if present and unexpired. An expired entry
// is removed on the spot.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*cacheEntry[K, V])
	if c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

// Set inserts or refreshes a value, evicting the least recently used entry
// when the bound is reached.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry[K, V])
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry[K, V]).key)
		}
	}

	c.entries[key] = c.order.PushFront(&cacheEntry[K, V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
}

// Len reports the current number of entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// VerdictCache is the storage contract of the reputation layer. Two
// implementations exist: the in-process TTL+LRU cache (default) and a
// Redis-backed cache for deployments with shared state.
type VerdictCache interface {
	Get(ctx context.Context, key string) (Verdict, bool)
	Set(ctx context.Context, key string, v Verdict)
}

// MemoryCache adapts TTLCache to the VerdictCache contract.
type MemoryCache struct {
	inner *TTLCache[string, Verdict]
}

// NewMemoryCache creates the default in-process cache.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{inner: NewTTLCache[string, Verdict](maxEntries, ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Verdict, bool) {
	return m.inner.Get(key)
}

func (m *MemoryCache) Set(_ context.Context, key string, v Verdict) {
	m.inner.Set(key, v)
}
