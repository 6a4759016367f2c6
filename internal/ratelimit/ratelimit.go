// Package ratelimit implements a per-client rolling-window request
// limiter. A request is admitted only if fewer than the limit have
// been admitted for that client within the trailing window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks admitted request timestamps per client.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time

	clients map[string][]time.Time
	total   uint64
}

// New creates a limiter admitting at most limit requests per client
// within the window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string][]time.Time),
	}
}

// SetNow overrides the clock. Test use only.
func (l *Limiter) SetNow(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Allow records and admits a request for clientID, or rejects it if
// the client already hit the limit within the window. Rejected
// requests are not recorded and do not extend the window.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	stamps := l.clients[clientID]
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.clients[clientID] = kept
		return false
	}

	l.clients[clientID] = append(kept, now)
	l.total++
	return true
}

// Remaining reports how many requests clientID may still make in the
// current window.
func (l *Limiter) Remaining(clientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	active := 0
	for _, t := range l.clients[clientID] {
		if t.After(cutoff) {
			active++
		}
	}
	if active >= l.limit {
		return 0
	}
	return l.limit - active
}

// Total reports the number of requests admitted since startup, across
// all clients.
func (l *Limiter) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
