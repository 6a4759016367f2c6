package services

import (
	"context"
	"time"
)

// Cache is the storage interface for generated story payloads. A miss
// is reported as an empty string, not an error.
type Cache interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}
