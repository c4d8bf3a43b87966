package kv

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ExpiringStore adds per-key time-to-live semantics on top of Store.
type ExpiringStore interface {
	Store
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}
