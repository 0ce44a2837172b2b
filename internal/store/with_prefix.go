package store

import (
	"context"
	"time"
)

type prefixedCache struct {
	underlying Cache
	prefix     string
}

func (p *prefixedCache) Get(ctx context.Context, key string) ([]byte, error) {
	return p.underlying.Get(ctx, p.prefix+key)
}

func (p *prefixedCache) SetWithTTL(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return p.underlying.SetWithTTL(ctx, p.prefix+key, val, ttl)
}

func (p *prefixedCache) Delete(ctx context.Context, key string) error {
	return p.underlying.Delete(ctx, p.prefix+key)
}

func (p *prefixedCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	return p.underlying.DeleteByPrefix(ctx, p.prefix+prefix)
}

func CacheWithPrefix(cache Cache, prefix string) Cache {
	return &prefixedCache{
		underlying: cache,
		prefix:     prefix,
	}
}
