package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(config *RedisConfig) *RedisStore {
	return &RedisStore{
		client: createRedisClient(config),
	}
}

// NewRedisStoreFromClient wraps an existing client, for callers that share a
// connection pool with the rest of the application.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return []byte(res), nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

var _ ExpiringStore = (*RedisStore)(nil)

func (s *RedisStore) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.SetEx(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := s.client.Expire(ctx, key, ttl).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}

	return err
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}

	return ttl, err
}
