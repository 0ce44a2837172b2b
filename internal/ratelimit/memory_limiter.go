package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// MemoryLimiter is a per-key token bucket limiter kept in process memory.
// Idle buckets are evicted once the key set exceeds maxKeys or after an idle window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	perMin  int
	burst   int
	now     func() time.Time
}

func (l *MemoryLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.buckets.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.buckets.Add(key, lim)
	return lim
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrInvalidKey
	}
	now := l.now()
	lim := l.getLimiter(key)
	allowed := lim.AllowN(now, 1)
	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	resetAt := now
	if missing := float64(l.burst) - lim.TokensAt(now); missing > 0 {
		resetAt = now.Add(time.Duration(missing / float64(l.limit) * float64(time.Second)))
	}
	return Result{
		Allowed:   allowed,
		Limit:     l.perMin,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// NewMemoryLimiter allows perMinute requests per key with the given burst.
func NewMemoryLimiter(perMinute, burst, maxKeys int) *MemoryLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	// a bucket idle for this long is full again, dropping it loses nothing
	idle := time.Duration(float64(burst)/float64(perMinute)*float64(time.Minute)) + time.Minute
	return &MemoryLimiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](maxKeys, nil, idle),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		perMin:  perMinute,
		burst:   burst,
		now:     time.Now,
	}
}
