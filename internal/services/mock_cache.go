package services

import (
	"context"
	"time"
)

// MockCache is a mock implementation of Cache for testing
type MockCache struct {
	PingFunc  func(ctx context.Context) error
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetFunc   func(ctx context.Context, key string) (string, error)
	DelFunc   func(ctx context.Context, keys ...string) error
	CloseFunc func() error

	// Track calls for testing
	PingCalls  []context.Context
	SetCalls   []SetCall
	GetCalls   []string
	DelCalls   [][]string
	CloseCalls int
}

type SetCall struct {
	Key        string
	Value      interface{}
	Expiration time.Duration
}

var _ Cache = (*MockCache)(nil)

// NewMockCache creates a new mock cache
func NewMockCache() *MockCache {
	return &MockCache{
		PingCalls: make([]context.Context, 0),
		SetCalls:  make([]SetCall, 0),
		GetCalls:  make([]string, 0),
		DelCalls:  make([][]string, 0),
	}
}

// Ping mocks cache ping
func (m *MockCache) Ping(ctx context.Context) error {
	m.PingCalls = append(m.PingCalls, ctx)

	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}

	// Default behavior - success
	return nil
}

// Set mocks cache set
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.SetCalls = append(m.SetCalls, SetCall{
		Key:        key,
		Value:      value,
		Expiration: expiration,
	})

	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}

	// Default behavior - success
	return nil
}

// Get mocks cache get
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.GetCalls = append(m.GetCalls, key)

	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	// Default behavior - cache miss
	return "", nil
}

// Del mocks cache delete
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.DelCalls = append(m.DelCalls, keys)

	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}

	// Default behavior - success
	return nil
}

// Close mocks cache close
func (m *MockCache) Close() error {
	m.CloseCalls++

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}

	return nil
}
