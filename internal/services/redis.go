package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements the Cache interface on a Redis server. It is
// selected when REDIS_URL is configured, so cached stories survive
// server restarts and are shared between replicas.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache connects to the server at redisURL. Both redis:// URLs
// and bare host:port addresses are accepted.
func NewRedisCache(redisURL string, logger *slog.Logger) *RedisCache {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		// Not a URL; treat it as a plain address.
		opts = &redis.Options{Addr: redisURL}
	}

	return &RedisCache{
		client: redis.NewClient(opts),
		logger: logger,
	}
}

func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		r.logger.Error("redis set failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	r.logger.Debug("redis set", "key", key, "ttl", expiration)
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("redis miss", "key", key)
			return "", nil
		}
		r.logger.Error("redis get failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	r.logger.Debug("redis hit", "key", key, "value_length", len(value))
	return value, nil
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("redis del failed", "keys", keys, "error", err)
		return fmt.Errorf("redis del failed: %w", err)
	}
	r.logger.Debug("redis del", "keys", keys, "deleted", deleted)
	return nil
}

func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("closing redis connection: %w", err)
	}
	return nil
}
