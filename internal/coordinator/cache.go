package coordinator

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultCacheSize bounds the number of cached responses.
	DefaultCacheSize = 1000

	// DefaultTTL is the response lifetime when no per-source TTL is set.
	DefaultTTL = time.Hour
)

// cacheEntry pairs a cached result with its expiry deadline. TTLs vary per
// source, so expiry is tracked per entry rather than cache-wide.
type cacheEntry struct {
	result    *Result
	expiresAt time.Time
}

// Cache is a TTL-aware LRU over coordinator results. Capacity is enforced
// by the underlying LRU; freshness is checked at read time, and a stale
// entry is evicted and reported as a miss. Only successful results are
// stored; failures never enter the cache.
type Cache struct {
	lru        *lru.Cache[string, *cacheEntry]
	defaultTTL time.Duration

	// now is a clock hook for expiry tests.
	now func() time.Time
}

// NewCache creates a response cache holding at most size entries.
func NewCache(size int, defaultTTL time.Duration) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	inner, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}

	return &Cache{
		lru:        inner,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Get returns the cached result for key if present and fresh. The returned
// result is a shallow copy flagged FromCache, with the attempt count zeroed
// since no wire attempt served this read; the stored entry is untouched.
func (c *Cache) Get(key string) (*Result, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}

	cached := *entry.result
	cached.FromCache = true
	cached.Attempts = 0
	return &cached, true
}

// Set stores a result under key. A non-positive ttl falls back to the
// cache default.
func (c *Cache) Set(key string, result *Result, ttl time.Duration) {
	if result == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.lru.Add(key, &cacheEntry{
		result:    result,
		expiresAt: c.now().Add(ttl),
	})
}

// Len returns the number of entries currently held, including entries that
// have expired but not yet been read.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}
