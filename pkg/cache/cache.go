// Package cache provides pluggable caching for expensive matcher results.
//
// Subgraph matching is the most expensive operation in the library, so
// match results can be cached keyed by content hashes of the host graph,
// the pattern and the typing constraints. Three backends are provided:
//
//   - FileCache: file-based, for CLI usage
//   - RedisCache: shared, for server deployments
//   - NullCache: disabled caching
//
// Keys are produced by a Keyer so that deployments can namespace entries
// (see ScopedKeyer).
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the default expiry for cached match results.
const DefaultTTL = 24 * time.Hour

// Cache is the interface implemented by all cache backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
