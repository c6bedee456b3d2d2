// Package cache provides the metadata cache used by the GitHub client.
//
// Caching is opt-in: each enrichment run re-fetches metadata by default
// (NullCache), and the CLI enables the file-backed cache only when the
// user sets a TTL.
package cache

import (
	"context"
	"time"
)

// Cache stores raw byte values under string keys with per-entry TTLs.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present (and fresh).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
