package store

import (
	"context"
	"encoding/json"
	"time"
)

type store[T any] struct {
	cache    Cache
	disabled bool
}

type Option func(*options)

type options struct {
	disabled bool
}

// WithDisabled turns the store into a pass-through: reads always miss and
// writes are dropped.
func WithDisabled(disabled bool) Option {
	return func(o *options) {
		o.disabled = disabled
	}
}

func (s *store[T]) Cache() Cache {
	return s.cache
}

func (s *store[T]) Get(ctx context.Context, key string) (T, error) {
	var obj T
	if s.disabled {
		return obj, ErrNotFound
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return obj, err
	}
	err = json.Unmarshal(data, &obj)
	return obj, err
}

func (s *store[T]) Set(ctx context.Context, key string, val T, expiresIn time.Duration) error {
	if s.disabled {
		return nil
	}
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.cache.SetWithTTL(ctx, key, data, expiresIn)
}

func (s *store[T]) Delete(ctx context.Context, key string) error {
	if s.disabled {
		return nil
	}
	return s.cache.Delete(ctx, key)
}

func (s *store[T]) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if s.disabled {
		return 0, nil
	}
	return s.cache.DeleteByPrefix(ctx, prefix)
}

// New returns a JSON encoded typed view over cache with keys namespaced by keyPrefix.
func New[T any](cache Cache, keyPrefix string, opts ...Option) Store[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &store[T]{
		cache:    CacheWithPrefix(cache, keyPrefix),
		disabled: o.disabled,
	}
}
