// Package ratelimit implements fixed-window request counting keyed by an
// arbitrary string (the client address for the webhook route).
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request for key fits in the current window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps the windows in process memory
type MemoryLimiter struct {
	limit   int
	size    time.Duration
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryLimiter allows limit requests per key in each window of the given size
func NewMemoryLimiter(limit int, size time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		size:    size,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	start := now.Truncate(l.size)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || !w.start.Equal(start) {
		l.evictExpired(start)
		w = &window{start: start}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, nil
}

// evictExpired drops windows older than the current one; caller holds mu
func (l *MemoryLimiter) evictExpired(current time.Time) {
	for key, w := range l.windows {
		if w.start.Before(current) {
			delete(l.windows, key)
		}
	}
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
