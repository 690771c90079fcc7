package ports

import (
	"context"
	"time"
)

// Cache is the byte-level store behind the user read-through cache.
// Errors are advisory: callers fall back to the user store and never fail a
// redeem because the cache is unavailable.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl; a non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete drops the key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}
