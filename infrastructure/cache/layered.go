package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/galley/internal/ports"
)

var _ ports.CacheStore = (*LayeredCache)(nil)

// LayeredCache reads through a fast front store to a persistent back store
// and writes to both.
type LayeredCache struct {
	front ports.CacheStore
	back  ports.CacheStore
	// frontTTL bounds how long promoted entries stay in the front store.
	frontTTL time.Duration
}

// NewLayeredCache combines front and back stores.
func NewLayeredCache(front, back ports.CacheStore, frontTTL time.Duration) *LayeredCache {
	return &LayeredCache{front: front, back: back, frontTTL: frontTTL}
}

// NewMemoryDiskCache layers a memory cache over a disk cache in dir.
func NewMemoryDiskCache(memoryTTL time.Duration, dir string, diskTTL time.Duration) *LayeredCache {
	return NewLayeredCache(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(dir, diskTTL), memoryTTL)
}

// Get implements ports.CacheStore. Back-store hits are promoted to the front.
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, found, err := c.front.Get(ctx, key); err == nil && found {
		return val, true, nil
	}

	val, found, err := c.back.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	// A failed promotion still serves the value.
	_ = c.front.Set(ctx, key, val, c.frontTTL)
	return val, true, nil
}

// Set implements ports.CacheStore.
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := c.front.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return c.back.Set(ctx, key, value, expiration)
}

// Delete implements ports.CacheStore.
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.front.Delete(ctx, key), c.back.Delete(ctx, key))
}

// Clear implements ports.CacheStore.
func (c *LayeredCache) Clear(ctx context.Context) error {
	return errors.Join(c.front.Clear(ctx), c.back.Clear(ctx))
}
