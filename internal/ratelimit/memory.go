package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pruneEvery bounds how often the memory limiter sweeps out stale windows.
const pruneEvery = 512

type window struct {
	sec  int64
	hits int
}

// MemoryLimiter is a fixed-window per-second limiter held in process memory.
// It is the fallback backend when Redis is disabled or unreachable.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]window
	ops     int
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]window)}
}

// Allow checks whether the request fits into the current one-second window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ops++
	if l.ops >= pruneEvery {
		l.ops = 0
		for k, w := range l.windows {
			if w.sec != sec {
				delete(l.windows, k)
			}
		}
	}

	w := l.windows[key]
	if w.sec != sec {
		w = window{sec: sec}
	}
	if w.hits >= limit {
		l.windows[key] = w
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	w.hits++
	l.windows[key] = w
	return Result{Allowed: true, Remaining: limit - w.hits, Reset: reset}, nil
}
