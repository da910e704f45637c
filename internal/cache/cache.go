// Package cache holds the short-TTL response cache for statement list pages.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte-level TTL cache. Two implementations exist: the in-process
// map below and the redis-backed one in redis.go.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	Delete(ctx context.Context, key string)
}

const defaultTTL = 5 * time.Second

// Cache is the in-process fallback used when no redis address is configured.
// Entries are reaped lazily on read.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.Delete(ctx, key)

		return nil, false
	}

	return e.body, true
}

func (c *Cache) Set(_ context.Context, key string, val []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{body: val, expiresAt: time.Now().Add(c.ttl)}
}

func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}
