package cache

import (
	"context"
	"sync"
	"time"

	"github.com/trolleywise/backend/internal/domain"
)

// cacheItem holds one resolved match with its expiration time
type cacheItem struct {
	Result     domain.MatchResult
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory match cache with TTL support.
// Repeat resolutions of the same product name skip the external search
// and embedding calls entirely for the lifetime of the entry.
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
	}

	// Cleanup goroutine removes expired entries every 10 minutes
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a cached match. Expired or absent entries return
// domain.ErrCacheMiss.
func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.MatchResult, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	if time.Now().After(item.Expiration) {
		return nil, domain.ErrCacheMiss
	}

	// Deep copy so callers cannot mutate the cached entry, including
	// through the shared candidate pointer.
	result := item.Result.Clone()
	return &result, nil
}

// Set stores a resolved match with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, result *domain.MatchResult, ttl time.Duration) error {
	if result == nil {
		return domain.ErrInvalidRequest
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Result:     result.Clone(),
		Expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a cached match
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.Expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
