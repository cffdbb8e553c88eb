package http

import (
	"sync"
	"time"

	"confeitaria/internal/cache"
	"confeitaria/internal/store"
)

// cachedReport is a rendered response body.
type cachedReport struct {
	contentType string
	filename    string
	body        []byte
}

// ReportCache keeps rendered summaries and exports until a mutation to
// orders or expenses makes them stale.
type ReportCache struct {
	lru cache.Cache[cachedReport]

	// gen counts invalidations. A render that started before the latest one
	// is not stored.
	mu  sync.Mutex
	gen uint64
}

// NewReportCache holds up to size reports for ttl. A size of zero disables it.
func NewReportCache(size int, ttl time.Duration) *ReportCache {
	if size <= 0 {
		return &ReportCache{}
	}
	return &ReportCache{lru: cache.NewLRUCache[cachedReport](size, ttl)}
}

func (c *ReportCache) get(key string) (cachedReport, bool) {
	if c.lru == nil {
		return cachedReport{}, false
	}
	return c.lru.Get(key)
}

// generation is captured before rendering and handed back to set.
func (c *ReportCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// set stores rep unless the cache was invalidated after gen was taken.
func (c *ReportCache) set(key string, rep cachedReport, gen uint64) bool {
	if c.lru == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.lru.Set(key, rep)
	return true
}

// Invalidate drops every cached report after a change to collection.
// Catalog edits leave reports untouched since orders keep their own snapshot.
func (c *ReportCache) Invalidate(collection string) {
	if c.lru == nil || collection == store.Products {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
}

func (c *ReportCache) Size() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Size()
}

func (c *ReportCache) CleanExpired() int {
	if cl, ok := c.lru.(cache.Cleaner); ok {
		return cl.CleanExpired()
	}
	return 0
}
