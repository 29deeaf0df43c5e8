package cache

import (
	"context"
	"sync"
)

// MemoryCache is a process-local Cache for single-node and test setups.
type MemoryCache struct {
	mu      sync.RWMutex
	present map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{present: make(map[string]struct{})}
}

func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.present[key]
	return ok, nil
}

func (c *MemoryCache) MarkPresent(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present[key] = struct{}{}
	return nil
}

func (c *MemoryCache) Ping(context.Context) error { return nil }

func (c *MemoryCache) Close() error { return nil }
