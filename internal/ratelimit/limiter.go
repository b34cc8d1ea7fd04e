// Package ratelimit throttles failed login attempts per caller.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates login attempts by caller key. Allow reports whether the key
// may attempt another login; RecordFailure consumes one attempt after a
// rejected login, so successful logins never count against the budget.
type Limiter interface {
	Allow(key string) bool
	RecordFailure(key string)
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter is an in-memory Limiter allowing maxAttempts failures per
// rolling window per key. Counters are best effort: state lives in process
// memory and restarts empty.
type LoginLimiter struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter constructs a LoginLimiter.
func NewLoginLimiter(maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		entries:     make(map[string]*entry),
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allow reports whether key still has attempt budget left.
func (l *LoginLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entryLocked(key).lim.Tokens() >= 1
}

// RecordFailure burns one attempt for key.
func (l *LoginLimiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entryLocked(key).lim.Allow()
}

func (l *LoginLimiter) entryLocked(key string) *entry {
	now := time.Now()
	e, ok := l.entries[key]
	if !ok {
		refill := rate.Every(l.window / time.Duration(l.maxAttempts))
		e = &entry{lim: rate.NewLimiter(refill, l.maxAttempts)}
		l.entries[key] = e
	}
	e.lastSeen = now

	if len(l.entries) > 1024 {
		l.pruneLocked(now)
	}
	return e
}

func (l *LoginLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-2 * l.window)
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
