package framecache

import "sync"

// Cache is a generic thread-safe LRU cache with soft limit.
// When the cache exceeds softLimit, least recently used entries are evicted.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*cacheEntry[K, V]
	order     *lruList[K]
	softLimit int

	hits      uint64
	misses    uint64
	evictions uint64
}

// cacheEntry holds a cached value. ready is closed once the value (or the
// load error) is available.
type cacheEntry[K comparable, V any] struct {
	value V
	err   error
	ready chan struct{}
	node  *lruNode[K]
}

// New creates a new cache with the given soft limit.
// A softLimit of 0 means unlimited.
func New[K comparable, V any](softLimit int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*cacheEntry[K, V]),
		order:     newLRUList[K](),
		softLimit: softLimit,
	}
}

// Get retrieves a loaded value from the cache.
// Returns (value, true) if found, (zero, false) otherwise. Entries still
// being loaded are reported as missing.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || entry.node == nil {
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	c.order.MoveToFront(entry.node)
	return entry.value, true
}

// Set stores a value in the cache.
// If the cache exceeds softLimit after insertion, oldest entries are evicted.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && old.node != nil {
		old.value = value
		c.order.MoveToFront(old.node)
		return
	}

	ready := make(chan struct{})
	close(ready)
	c.entries[key] = &cacheEntry[K, V]{
		value: value,
		ready: ready,
		node:  c.order.PushFront(key),
	}
	c.evict()
}

// GetOrLoad returns the cached value for key, or calls load to produce it.
//
// load runs without the cache lock held. If another goroutine is already
// loading key, GetOrLoad waits for that load instead of starting a second
// one. A load error is returned to every waiter and nothing is cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if entry.node != nil {
			c.hits++
			c.order.MoveToFront(entry.node)
			c.mu.Unlock()
			return entry.value, nil
		}
		// In flight.
		c.hits++
		c.mu.Unlock()
		<-entry.ready
		return entry.value, entry.err
	}

	c.misses++
	entry := &cacheEntry[K, V]{ready: make(chan struct{})}
	c.entries[key] = entry
	c.mu.Unlock()

	value, err := load()

	c.mu.Lock()
	entry.value, entry.err = value, err
	if err != nil {
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
	} else if c.entries[key] == entry {
		entry.node = c.order.PushFront(key)
		c.evict()
	}
	c.mu.Unlock()
	close(entry.ready)

	return value, err
}

// Delete removes an entry from the cache.
// Returns true if a loaded entry was found and removed. An in-flight load
// for key is detached: its result is returned to its waiters but not stored.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	if entry.node == nil {
		return false
	}
	c.order.Remove(entry.node)
	return true
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*cacheEntry[K, V])
	c.order.Clear()
}

// Len returns the number of loaded entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Capacity returns the soft limit of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.softLimit
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       c.order.Len(),
		Capacity:  c.softLimit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// evict removes least recently used entries until under softLimit.
// Caller must hold c.mu.
func (c *Cache[K, V]) evict() {
	if c.softLimit <= 0 {
		return
	}
	for c.order.Len() > c.softLimit {
		key, ok := c.order.RemoveOldest()
		if !ok {
			return
		}
		delete(c.entries, key)
		c.evictions++
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of loaded entries.
	Len int
	// Capacity is the soft limit.
	Capacity int
	// Hits is the number of lookups served from the cache or an in-flight load.
	Hits uint64
	// Misses is the number of lookups that found nothing.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of evicted entries.
	Evictions uint64
}
