package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is the single-process fallback used when Redis is disabled.
// Entries expire after the TTL the cache was built with; the per-call ttl
// passed to Set is ignored.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 512
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Values are stored encoded so callers never share mutable state through the cache.
func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.lru.Get(key)
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.lru.Add(key, raw)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
