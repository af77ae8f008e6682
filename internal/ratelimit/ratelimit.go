// Package ratelimit keeps outbound API calls under a per-minute quota.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const window = time.Minute

// Limiter counts requests per key in fixed one-minute windows.
type Limiter struct {
	mu                sync.Mutex
	keys              map[string]*keyInfo
	requestsPerMinute int
	now               func() time.Time
}

type keyInfo struct {
	windowStart time.Time
	requests    int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
}

// DefaultConfig matches the Google Sheets per-user write quota.
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	return &Limiter{
		keys:              make(map[string]*keyInfo),
		requestsPerMinute: config.RequestsPerMinute,
		now:               time.Now,
	}
}

// Allow reports whether one more request for key fits the current window.
func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.reserve(key)
	return ok
}

// Wait blocks until a request for key is allowed or ctx is done.
func (rl *Limiter) Wait(ctx context.Context, key string) error {
	for {
		ok, retryIn := rl.reserve(key)
		if ok {
			return nil
		}
		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a slot for key, or returns how long until the window resets.
func (rl *Limiter) reserve(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, exists := rl.keys[key]
	if !exists || now.Sub(info.windowStart) >= window {
		rl.keys[key] = &keyInfo{windowStart: now, requests: 1}
		return true, 0
	}
	if info.requests < rl.requestsPerMinute {
		info.requests++
		return true, 0
	}
	return false, window - now.Sub(info.windowStart)
}

// ActiveKeys returns the number of keys with a tracked window.
func (rl *Limiter) ActiveKeys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.keys)
}
