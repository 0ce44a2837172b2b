package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidKey = errors.New("invalid rate limit key")

// Result describes the state of a client's quota after a request was counted.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Unlimited allows every request.
type Unlimited struct{}

func (Unlimited) Allow(ctx context.Context, key string) (Result, error) {
	return Result{Allowed: true, Remaining: -1}, nil
}
