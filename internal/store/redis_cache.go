package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

type RedisCache struct {
	rdb redis.UniversalClient
}

func (s *RedisCache) Conn() redis.UniversalClient {
	return s.rdb
}

func (s *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

func (s *RedisCache) SetWithTTL(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, val, ttl).Err()
}

func (s *RedisCache) Delete(ctx context.Context, key string) error {
	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByPrefix scans for matching keys and deletes them in batches. Keys
// written between the scan and the delete survive until they expire.
func (s *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	pattern := escapePattern(prefix) + "*"
	if cluster, ok := s.rdb.(*redis.ClusterClient); ok {
		var (
			mu    sync.Mutex
			total int
		)
		err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			n, err := scanAndDelete(ctx, node, pattern)
			mu.Lock()
			total += n
			mu.Unlock()
			return err
		})
		return total, err
	}
	return scanAndDelete(ctx, s.rdb, pattern)
}

func scanAndDelete(ctx context.Context, rdb redis.Cmdable, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := deleteKeys(ctx, rdb, keys)
			deleted += n
			if err != nil {
				return deleted, err
			}
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// deleteKeys issues one DEL per key so that keys hashing to different cluster
// slots can be removed in the same round trip.
func deleteKeys(ctx context.Context, rdb redis.Cmdable, keys []string) (int, error) {
	pipe := rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	var deleted int
	for _, cmd := range cmds {
		deleted += int(cmd.Val())
	}
	return deleted, nil
}

// escapePattern quotes the glob metacharacters understood by SCAN MATCH.
func escapePattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{
		rdb: rdb,
	}
}
