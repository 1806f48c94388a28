package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/linker/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Cache interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.Cache {
	return &RedisStore{
		client: client,
		prefix: "linker:cache:",
	}
}

// Set stores value under key with expiration
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key: %w", err)
	}
	return nil
}

// Get returns the value stored under key, if any
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache key: %w", err)
	}
	return val, true, nil
}
