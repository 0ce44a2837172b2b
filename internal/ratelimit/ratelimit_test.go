package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBurstThenDeny(t *testing.T) {
	ctx := context.Background()
	lim := NewMemoryLimiter(60, 3, 100)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lim.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		res, err := lim.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 60, res.Limit)
	}
	res, err := lim.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.ResetAt.After(fixed))

	// other clients keep their own bucket
	res, err = lim.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// one token is refilled per second at 60/min
	fixed = fixed.Add(time.Second)
	res, err = lim.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterRejectsEmptyKey(t *testing.T) {
	_, err := NewMemoryLimiter(60, 1, 10).Allow(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	lim := NewRedisLimiter(rdb, "rl:", 2, time.Minute)
	fixed := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	lim.now = func() time.Time { return fixed }

	for i := 0; i < 2; i++ {
		res, err := lim.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
	}
	res, err := lim.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC), res.ResetAt)

	key := "rl:1.2.3.4:" + "1704067200"
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))

	fixed = fixed.Add(time.Minute)
	res, err = lim.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiterUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	_, err := NewRedisLimiter(rdb, "rl:", 2, time.Minute).Allow(context.Background(), "1.2.3.4")
	assert.Error(t, err)
}

func TestUnlimited(t *testing.T) {
	res, err := Unlimited{}.Allow(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
