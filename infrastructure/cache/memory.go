package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ahrav/galley/internal/ports"
)

var _ ports.CacheStore = (*MemoryCache)(nil)

// MemoryCache keeps entries in process memory with per-entry expiry.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache. Entries stored with a zero TTL use
// defaultTTL; expired entries are purged every cleanupInterval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// Get implements ports.CacheStore.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		c.cache.Delete(key)
		return nil, false, ports.NewCacheError(key, "get", ports.ErrCacheCorrupted)
	}
	return data, true, nil
}

// Set implements ports.CacheStore. A zero expiration uses the default TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	c.cache.Set(key, value, expiration)
	return nil
}

// Delete implements ports.CacheStore.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear implements ports.CacheStore.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.cache.Flush()
	return nil
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *MemoryCache) Len() int { return c.cache.ItemCount() }
