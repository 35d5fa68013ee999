// Package cache provides ports.CacheStore implementations for judge verdicts:
// an in-process store, a JSON file store and a layered combination of both.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// keyPrefix versions the key space so a format change invalidates old entries.
const keyPrefix = "galley:v1:"

// Key derives a cache key from its parts. Parts are separated by a NUL byte so
// ("ab", "c") and ("a", "bc") hash differently.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + hex.EncodeToString(hash[:])
}
