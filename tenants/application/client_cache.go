package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wappanel/wappanel/tenants/domain"
)

type cacheEntry struct {
	summary  domain.Summary
	expires  time.Time
	storedAt time.Time
}

// ClientCache keeps tenant summaries in memory so the webhook hot path does
// not hit the store on every delivery. It is purely an optimization: misses
// always fall through to the repository.
type ClientCache struct {
	repo     domain.TenantRepository
	ttl      time.Duration
	capacity int

	mu    sync.RWMutex
	store map[string]cacheEntry

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewClientCache creates the cache and starts its sweep loop. Pass a zero
// sweepInterval to disable the background sweeps (tests).
func NewClientCache(repo domain.TenantRepository, capacity int, ttl, sweepInterval time.Duration) *ClientCache {
	if capacity <= 0 {
		capacity = 500
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := &ClientCache{
		repo:     repo,
		ttl:      ttl,
		capacity: capacity,
		store:    make(map[string]cacheEntry),
		stopCh:   make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// GetSummary returns the cached tenant summary, loading it from the store on
// a miss.
func (c *ClientCache) GetSummary(ctx context.Context, tenantID string) (domain.Summary, error) {
	c.mu.RLock()
	e, ok := c.store[tenantID]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expires) {
		return e.summary, nil
	}

	tenant, err := c.repo.GetByID(ctx, tenantID)
	if err != nil {
		return domain.Summary{}, err
	}

	summary := tenant.Summarize()
	c.put(tenantID, summary)
	return summary, nil
}

// GetTenant loads the full tenant from the store and refreshes the cached
// summary on the way. Callers that need the AI credentials use this.
func (c *ClientCache) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	tenant, err := c.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.put(tenantID, tenant.Summarize())
	return tenant, nil
}

// Invalidate drops the cached summary for a tenant. Called after admin
// mutations.
func (c *ClientCache) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.store, tenantID)
	c.mu.Unlock()
}

// Size returns the current number of cached tenants.
func (c *ClientCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the sweep loop.
func (c *ClientCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *ClientCache) put(tenantID string, summary domain.Summary) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[tenantID] = cacheEntry{
		summary:  summary,
		expires:  now.Add(c.ttl),
		storedAt: now,
	}

	// Above 80% occupancy the normal sweep may not keep up; drop the oldest
	// fifth by insertion time regardless of expiry.
	if len(c.store) >= c.capacity*8/10 {
		c.purgeOldestLocked(len(c.store) / 5)
	}
}

func (c *ClientCache) purgeOldestLocked(n int) {
	if n <= 0 {
		return
	}
	type aged struct {
		key      string
		storedAt time.Time
	}
	entries := make([]aged, 0, len(c.store))
	for k, e := range c.store {
		entries = append(entries, aged{key: k, storedAt: e.storedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].storedAt.Before(entries[j].storedAt)
	})
	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(c.store, e.key)
	}
	logrus.Debugf("[CACHE] Tenant cache purged %d oldest entries (occupancy pressure)", n)
}

func (c *ClientCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.store {
				if now.After(e.expires) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
