package store

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

// MemoryCache is a size bounded in-process cache. Entries expire after their own
// ttl or after maxTTL, whichever comes first.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, ErrNotFound
	}
	return entry.val, nil
}

func (c *MemoryCache) SetWithTTL(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	entry := memoryEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.lru.Add(key, entry)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if !c.lru.Remove(key) {
		return ErrNotFound
	}
	return nil
}

func (c *MemoryCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	var deleted int
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			deleted++
		}
	}
	return deleted, nil
}

func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
	}
}
