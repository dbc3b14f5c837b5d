// Package ratelimit implements a fixed-window request counter keyed by
// client identifier, held in process memory and bounded by a janitor.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/webforms/sheetsink/log"
)

type entry struct {
	count       int
	windowStart time.Time
}

type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*entry

	now func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow counts one request for key. The window resets wholesale by
// wall-clock comparison; request limit+1 inside a live window is denied
// with the time left until the reset.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e := l.clients[key]
	if e == nil || now.Sub(e.windowStart) >= l.window {
		l.clients[key] = &entry{count: 1, windowStart: now}
		return true, 0
	}

	e.count++
	if e.count > l.limit {
		return false, e.windowStart.Add(l.window).Sub(now)
	}
	return true, 0
}

// Janitor evicts entries one full window after they expired, keeping the
// table bounded by the number of recently active clients. Blocks until
// ctx is done; run it on its own goroutine.
func (l *Limiter) Janitor(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.sweep(); n > 0 {
				log.Debugf("ratelimit: evicted %d idle clients", n)
			}
		}
	}
}

func (l *Limiter) sweep() (evicted int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-2 * l.window)
	for key, e := range l.clients {
		if e.windowStart.Before(cutoff) {
			delete(l.clients, key)
			evicted++
		}
	}
	return
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
