package retrieval

import (
	"sync"
	"time"

	"inquest/internal/types"
)

// =============================================================================
// CACHE
// =============================================================================

// QueryResultCache caches fused search results keyed by query text.
type QueryResultCache struct {
	entries map[string]*cacheEntry
	mu      sync.RWMutex
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	chunks    []types.FusedChunk
	timestamp time.Time
}

// NewQueryResultCache creates a new cache.
func NewQueryResultCache(maxSize int, ttl time.Duration) *QueryResultCache {
	return &QueryResultCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves cached results for a query.
func (c *QueryResultCache) Get(query string) ([]types.FusedChunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[query]
	if !ok {
		return nil, false
	}

	// Check TTL
	if time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}

	return entry.chunks, true
}

// Set stores results for a query.
func (c *QueryResultCache) Set(query string, chunks []types.FusedChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict if at capacity
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[query] = &cacheEntry{
		chunks:    chunks,
		timestamp: time.Now(),
	}
}

// evictOldest removes the oldest cache entry.
func (c *QueryResultCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.timestamp.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.timestamp
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Clear empties the cache.
func (c *QueryResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}
