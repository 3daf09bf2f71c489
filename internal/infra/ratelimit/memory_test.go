package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := limiter.Allow(ctx, "passcode:v1:1.2.3.4", 5, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("attempt %d denied under the limit", i)
		}
		if decision.Remaining != 5-(i+1) {
			t.Fatalf("attempt %d remaining = %d, want %d", i, decision.Remaining, 5-(i+1))
		}
	}

	decision, err := limiter.Allow(ctx, "passcode:v1:1.2.3.4", 5, time.Minute)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if decision.Allowed {
		t.Fatal("sixth attempt in the window was allowed")
	}

	// A different key is an independent window.
	other, err := limiter.Allow(ctx, "passcode:v1:5.6.7.8", 5, time.Minute)
	if err != nil {
		t.Fatalf("allow other key: %v", err)
	}
	if !other.Allowed {
		t.Fatal("independent key was throttled")
	}

	// The window resets once it elapses.
	now = now.Add(time.Minute + time.Second)
	decision, err = limiter.Allow(ctx, "passcode:v1:1.2.3.4", 5, time.Minute)
	if err != nil {
		t.Fatalf("allow after reset: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("attempt after window reset was denied")
	}
	if decision.Remaining != 4 {
		t.Fatalf("remaining after reset = %d, want 4", decision.Remaining)
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	decision, err := limiter.Allow(context.Background(), "any", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("zero limit must disable throttling")
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }, MaxKeys: 2})
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "a", 1, time.Minute); err != nil {
		t.Fatalf("allow a: %v", err)
	}
	if _, err := limiter.Allow(ctx, "b", 1, time.Minute); err != nil {
		t.Fatalf("allow b: %v", err)
	}
	if _, err := limiter.Allow(ctx, "c", 1, time.Minute); err == nil {
		t.Fatal("expected capacity error with all buckets live")
	}

	// Dead buckets are collected to make room.
	now = now.Add(2 * time.Minute)
	if _, err := limiter.Allow(ctx, "c", 1, time.Minute); err != nil {
		t.Fatalf("allow c after gc: %v", err)
	}
}
