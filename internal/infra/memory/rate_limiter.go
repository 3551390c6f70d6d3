package memory

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a process-local fixed-window counter, the -dev stand-in for
// the Redis limiter.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: map[string]window{}, now: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, d time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w := l.windows[key]
	if !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(d)}
	}
	w.count++
	l.windows[key] = w
	return w.count <= limit, nil
}
