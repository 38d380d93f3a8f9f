// Package cache defines the key/value cache port.
package cache

import (
	"context"
	"time"
)

// Cache stores short-lived byte values such as probe results.
// A miss is reported with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value for ttl. A zero ttl keeps it until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
}
