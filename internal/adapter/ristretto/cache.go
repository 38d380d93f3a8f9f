// Package ristretto backs the cache port with an in-process ristretto cache.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/PlanForge/internal/port/cache"
)

// entryOverhead is charged per entry on top of the value length so empty
// values still have a cost.
const entryOverhead = 1

var _ cache.Cache = (*Cache)(nil)

// Cache is a size-bounded, TTL-aware byte cache local to the process.
type Cache struct {
	store *ristretto.Cache[string, []byte]
}

// New returns a cache whose values total at most sizeMB megabytes.
func New(sizeMB int64) (*Cache, error) {
	if sizeMB < 1 {
		return nil, fmt.Errorf("cache size must be at least 1 MB, got %d", sizeMB)
	}
	budget := sizeMB << 20
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		MaxCost:     budget,
		NumCounters: budget / 100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &Cache{store: store}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.store.Get(key)
	return v, ok, nil
}

// Set blocks until the write is visible to Get. ristretto may still refuse
// an entry under contention, which then behaves like a miss.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.store.SetWithTTL(key, value, int64(len(value))+entryOverhead, ttl)
	c.store.Wait()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.store.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}
