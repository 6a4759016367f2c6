package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements the Cache interface in process memory. It is
// the default when no Redis URL is configured.
type MemoryCache struct {
	store  *gocache.Cache
	logger *slog.Logger
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an in-process cache with the given default
// TTL. Expired entries are swept every ten minutes.
func NewMemoryCache(defaultTTL time.Duration, logger *slog.Logger) *MemoryCache {
	return &MemoryCache{
		store:  gocache.New(defaultTTL, 10*time.Minute),
		logger: logger,
	}
}

func (m *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	raw, found := m.store.Get(key)
	if !found {
		m.logger.Debug("memory cache miss", "key", key)
		return "", nil
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("memory cache holds non-string value for key %s", key)
	}
	m.logger.Debug("memory cache hit", "key", key, "value_length", len(value))
	return value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("memory cache only stores strings, got %T", value)
	}
	if expiration == 0 {
		expiration = gocache.DefaultExpiration
	}
	m.store.Set(key, s, expiration)
	return nil
}

func (m *MemoryCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.store.Delete(key)
	}
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}
