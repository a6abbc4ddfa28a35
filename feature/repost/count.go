package repost

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// countEntry is one cached count with its build time.
type countEntry struct {
	count int64
	built time.Time
}

// countCache caches repost counts per filter key with a TTL, using
// singleflight to prevent stampedes on cold keys. Counts reflect all users'
// reposts, so a short TTL is acceptable staleness.
type countCache struct {
	mu      sync.RWMutex
	entries map[string]countEntry
	sf      singleflight.Group
	ttl     time.Duration
}

func newCountCache(ttl time.Duration) *countCache {
	return &countCache{
		entries: make(map[string]countEntry),
		ttl:     ttl,
	}
}

func (c *countCache) expired(e countEntry) bool {
	if c.ttl == 0 {
		return true // No caching
	}
	return time.Since(e.built) > c.ttl
}

// get returns the cached count for key, or loads it.
func (c *countCache) get(ctx context.Context, key string, load func(ctx context.Context) (int64, error)) (int64, error) {
	// Fast path: fresh entry
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if exists && !c.expired(entry) {
		return entry.count, nil
	}

	// Slow path: load under singleflight
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		c.mu.RLock()
		entry, exists := c.entries[key]
		c.mu.RUnlock()

		if exists && !c.expired(entry) {
			return entry.count, nil
		}

		count, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = countEntry{count: count, built: time.Now()}
		c.mu.Unlock()

		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// invalidate removes a cached count, forcing a reload on next get.
func (c *countCache) invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
