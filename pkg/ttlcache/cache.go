// Package ttlcache provides the bounded in-memory cache used to keep
// webhook ingestion latency low. Entries carry an absolute expiry and a hit
// counter; when the cache is full the entry with the fewest hits is evicted
// first. The cache is advisory only: callers must always be able to fall
// back to the store on a miss.
package ttlcache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
	hits      int64
	storedAt  time.Time
}

// Stats is a snapshot of cache counters, exposed for monitoring endpoints.
type Stats struct {
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Cache is a bounded TTL key/value cache safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	store    map[string]*entry
	capacity int

	hits      int64
	misses    int64
	evictions int64

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// New creates a cache bounded to capacity entries. A janitor goroutine
// removing expired entries starts on the given sweep interval; pass zero to
// disable it (tests construct caches without timers).
func New(capacity int, sweepInterval time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	c := &Cache{
		store:       make(map[string]*entry),
		capacity:    capacity,
		janitorStop: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.janitor(sweepInterval)
	}
	return c
}

// Get returns the cached value for key, bumping its hit counter. Expired
// entries are treated as misses and removed lazily.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.store, key)
		c.misses++
		return nil, false
	}
	e.hits++
	c.hits++
	return e.value, true
}

// Set stores value under key with the given TTL, evicting the least-hit
// entry when the cache is at capacity.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.capacity {
		c.evictLeastUsedLocked()
	}

	now := time.Now()
	c.store[key] = &entry{
		value:     value,
		expiresAt: now.Add(ttl),
		storedAt:  now,
	}
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

// InvalidatePattern removes every key containing the given substring. Used
// when a write touches an unknown number of derived entries (e.g. all list
// pages of a tenant).
func (c *Cache) InvalidatePattern(substring string) int {
	if substring == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.store {
		if strings.Contains(k, substring) {
			delete(c.store, k)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.store = make(map[string]*entry)
	c.mu.Unlock()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:      len(c.store),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Stop terminates the janitor goroutine. Safe to call multiple times.
func (c *Cache) Stop() {
	c.janitorOnce.Do(func() {
		close(c.janitorStop)
	})
}

func (c *Cache) evictLeastUsedLocked() {
	var victim string
	var victimHits int64 = -1
	for k, e := range c.store {
		if victimHits == -1 || e.hits < victimHits {
			victim = k
			victimHits = e.hits
		}
	}
	if victim != "" {
		delete(c.store, victim)
		c.evictions++
	}
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.janitorStop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
