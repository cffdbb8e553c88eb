package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	_, ok := c.Get("a") // a becomes most recent
	require.True(t, ok)
	c.Set("c", "3")

	_, ok = c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_ExpiresEntries(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set("a", "1")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "2")
	clock.t = clock.t.Add(45 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.CleanExpired()) // a was already dropped by Get
	_, ok = c.Get("b")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_OverwriteAndPurge(t *testing.T) {
	c, _ := newTestCache(3, time.Minute)

	c.Set("a", "1")
	c.Set("a", "2")
	v, _ := c.Get("a")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Size())

	c.Set("b", "x")
	c.Delete("b")
	assert.Equal(t, 1, c.Size())

	c.Purge()
	assert.Equal(t, 0, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("z", "after purge")
	assert.Equal(t, 1, c.Size())
}

func TestManager_CleanAll(t *testing.T) {
	c1, clock1 := newTestCache(5, time.Second)
	c2, _ := newTestCache(5, time.Hour)
	c1.Set("a", "1")
	c2.Set("b", "2")
	clock1.t = clock1.t.Add(2 * time.Second)

	m := NewManager()
	m.Register(c1)
	m.Register(c2)

	assert.Equal(t, 1, m.CleanAll())
	assert.Equal(t, 1, c2.Size())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop() // second stop is a no-op
}
