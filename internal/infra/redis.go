package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces stockpulse keys in a shared Redis.
const DefaultKeyPrefix = "stockpulse:"

// NewRedisClient connects to Redis from a URL ("redis://host:6379/0") or a
// bare address, and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// RedisStore is a Store backed by Redis string keys holding JSON. Expiry is
// Redis's own key TTL.
type RedisStore[T any] struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore[T any](client *redis.Client, prefix string) *RedisStore[T] {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore[T]{client: client, prefix: prefix, logger: slog.Default()}
}

// WithLogger sets the logger used for Redis failures.
func (s *RedisStore[T]) WithLogger(logger *slog.Logger) *RedisStore[T] {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Load implements Store.
func (s *RedisStore[T]) Load(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis cache read failed", "key", key, "error", err)
		}
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("redis cache entry unreadable", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

// Save implements Store. A non-positive ttl uses DefaultTTL.
func (s *RedisStore[T]) Save(ctx context.Context, key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("redis cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		s.logger.Warn("redis cache write failed", "key", key, "error", err)
	}
}

// Remove implements Store.
func (s *RedisStore[T]) Remove(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Warn("redis cache delete failed", "key", key, "error", err)
	}
}

// RemainingTTL returns the Redis TTL of key.
func (s *RedisStore[T]) RemainingTTL(ctx context.Context, key string) (time.Duration, bool) {
	d, err := s.client.TTL(ctx, s.prefix+key).Result()
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
