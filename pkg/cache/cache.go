// Package cache stores computed layouts so that reopening an unchanged
// diagram does not run the layout engine again.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entries under the user cache dir (CLI default)
//   - [RedisCache]: shared cache, enabled with layout.cache_url
//   - [NullCache]: disables caching
//
// Cache failures are never fatal to callers; the layout adapter logs and
// ignores them.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long layout entries live when callers do not choose.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
