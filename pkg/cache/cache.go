// Package cache provides byte caches for computed layouts.
//
// A [Cache] stores opaque values under string keys produced by a [Keyer].
// Three backends are provided:
//
//   - [NullCache] stores nothing; use it to disable caching.
//   - [FileCache] stores entries under a local directory (CLI usage).
//   - [RedisCache] stores entries in Redis (API server usage).
//
// Keys embed a hash of everything that influences the value, so entries
// never need explicit invalidation; TTLs only bound storage.
package cache

import (
	"context"
	"time"
)

// TTLs for cached values.
const (
	// TTLLayout bounds how long a computed layout is kept.
	TTLLayout = 7 * 24 * time.Hour

	// TTLImages bounds how long image records from a source are kept.
	TTLImages = 10 * time.Minute
)

// Cache is a key/value store for serialized results.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
