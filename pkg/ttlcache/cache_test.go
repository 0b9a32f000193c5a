package ttlcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := New(10, 0)

	c.Set("a", "value", time.Minute)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(10, 0)

	c.Set("a", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok, "expired entries must be treated as misses")
}

func TestCache_EvictsLeastHitEntry(t *testing.T) {
	c := New(3, 0)

	c.Set("popular", 1, time.Minute)
	c.Set("warm", 2, time.Minute)
	c.Set("cold", 3, time.Minute)

	for i := 0; i < 5; i++ {
		c.Get("popular")
	}
	c.Get("warm")

	// Cache is full; inserting a new key must evict "cold".
	c.Set("new", 4, time.Minute)

	_, ok := c.Get("cold")
	assert.False(t, ok)
	_, ok = c.Get("popular")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestCache_InvalidatePattern(t *testing.T) {
	c := New(20, 0)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("conversations:tenant1:page%d", i), i, time.Minute)
	}
	c.Set("conversations:tenant2:page0", 9, time.Minute)

	removed := c.InvalidatePattern("tenant1")
	assert.Equal(t, 5, removed)

	_, ok := c.Get("conversations:tenant2:page0")
	assert.True(t, ok, "other tenants' entries must survive")
}

func TestCache_Stats(t *testing.T) {
	c := New(2, 0)

	c.Set("a", 1, time.Minute)
	c.Get("a")
	c.Get("b")
	c.Set("x", 1, time.Minute)
	c.Set("y", 1, time.Minute) // forces one eviction

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Evictions)
	assert.Equal(t, 2, s.Size)
}
