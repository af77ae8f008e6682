package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	base := time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)
	now := base
	rl.now = func() time.Time { return now }

	if !rl.Allow("write") || !rl.Allow("write") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("write") {
		t.Fatal("third request in the window should be rejected")
	}
	if !rl.Allow("read") {
		t.Fatal("keys should be limited independently")
	}

	now = base.Add(time.Minute)
	if !rl.Allow("write") {
		t.Fatal("request after the window should be allowed")
	}
	if rl.ActiveKeys() != 2 {
		t.Fatalf("expected 2 keys, got %d", rl.ActiveKeys())
	}
}

func TestDefaultConfig(t *testing.T) {
	rl := NewLimiter(Config{})
	if rl.requestsPerMinute != 60 {
		t.Fatalf("expected default of 60, got %d", rl.requestsPerMinute)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	if err := rl.Wait(context.Background(), "write"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "write"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReserveReportsRetry(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	base := time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)
	now := base
	rl.now = func() time.Time { return now }

	rl.Allow("write")
	now = base.Add(45 * time.Second)
	ok, retryIn := rl.reserve("write")
	if ok || retryIn != 15*time.Second {
		t.Fatalf("expected retry in 15s, got ok=%v retry=%s", ok, retryIn)
	}
}
