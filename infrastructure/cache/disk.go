package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahrav/galley/internal/ports"
)

var _ ports.CacheStore = (*DiskCache)(nil)

// DiskCache stores one JSON file per entry under a directory, so verdicts
// survive between runs.
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir. Entries stored with a zero
// TTL use ttl.
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}
}

type diskEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get implements ports.CacheStore. Expired entries are removed and reported
// as misses; unreadable entries are removed and reported as corrupted.
func (c *DiskCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ports.NewCacheError(key, "get", err)
	}

	var entry diskEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false, ports.NewCacheError(key, "get", fmt.Errorf("%w: %v", ports.ErrCacheCorrupted, err))
	}
	if !entry.ExpiresAt.IsZero() && c.now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set implements ports.CacheStore. The entry is written to a temporary file
// and renamed into place. A negative expiration never expires.
func (c *DiskCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration == 0 {
		expiration = c.ttl
	}
	entry := diskEntry{Data: value}
	if expiration > 0 {
		entry.ExpiresAt = c.now().Add(expiration)
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return ports.NewCacheError(key, "set", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return ports.NewCacheError(key, "set", fmt.Errorf("create cache dir: %w", err))
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return ports.NewCacheError(key, "set", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return ports.NewCacheError(key, "set", err)
	}
	if err := tmp.Close(); err != nil {
		return ports.NewCacheError(key, "set", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		return ports.NewCacheError(key, "set", err)
	}
	return nil
}

// Delete implements ports.CacheStore. Deleting a missing key is not an error.
func (c *DiskCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ports.NewCacheError(key, "delete", err)
	}
	return nil
}

// Clear implements ports.CacheStore. It removes cache entries only, leaving
// other files in the directory alone.
func (c *DiskCache) Clear(_ context.Context) error {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.cache"))
	if err != nil {
		return ports.NewCacheError("*", "clear", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ports.NewCacheError(filepath.Base(m), "clear", err)
		}
	}
	return nil
}

// path maps key to a file name that is valid on every platform.
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(key, ":", "_")+".cache")
}
