package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		eventsPerSecond uint
		burst           uint
	}{
		{name: "standard rate", eventsPerSecond: 100, burst: 200},
		{name: "low rate", eventsPerSecond: 1, burst: 2},
		{name: "unlimited (zero rate)", eventsPerSecond: 0, burst: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.eventsPerSecond, tt.burst)
			if limiter == nil || limiter.limiter == nil {
				t.Fatal("New() returned an unusable limiter")
			}
		})
	}
}

func TestAllowEnforcesBurst(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Fatalf("event %d should be allowed within burst", i)
		}
	}

	if limiter.Allow() {
		t.Fatal("event should be dropped once the burst is exhausted")
	}

	// 10 events/s replenishes one token per 100ms.
	time.Sleep(110 * time.Millisecond)

	if !limiter.Allow() {
		t.Fatal("event should be allowed after token replenishment")
	}
}

func TestWait(t *testing.T) {
	limiter := New(10, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first event should pass immediately: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("second event should pass after waiting: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond || elapsed > 200*time.Millisecond {
		t.Fatalf("wait time %v outside expected range 50ms-200ms", elapsed)
	}
}

func TestWaitContextCancellation(t *testing.T) {
	limiter := New(1, 1)

	if !limiter.Allow() {
		t.Fatal("first event should be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("Wait() should fail once the context deadline passes")
	}
}

func TestAllowN(t *testing.T) {
	limiter := New(10, 10)

	if !limiter.AllowN(5) {
		t.Fatal("AllowN(5) should succeed with burst of 10")
	}
	if !limiter.AllowN(5) {
		t.Fatal("AllowN(5) should succeed, total 10 within burst")
	}
	if limiter.AllowN(1) {
		t.Fatal("AllowN(1) should fail after the burst is exhausted")
	}
}

func TestSetLimitRaisesBurst(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		limiter.Allow()
	}
	if limiter.Allow() {
		t.Fatal("bucket should be empty after exhausting burst")
	}

	limiter.SetLimit(100)

	// 200ms at 100 events/s accrues ~20 tokens, which requires the raised burst.
	time.Sleep(200 * time.Millisecond)

	allowed := 0
	for i := 0; i < 50; i++ {
		if !limiter.Allow() {
			break
		}
		allowed++
	}

	if allowed < 15 || allowed > 25 {
		t.Fatalf("expected ~20 events allowed at the new rate, got %d", allowed)
	}
}

func TestTokens(t *testing.T) {
	limiter := New(10, 10)

	initial := limiter.Tokens()
	if initial < 9 || initial > 10 {
		t.Fatalf("initial tokens %f outside expected range 9-10", initial)
	}

	for i := 0; i < 5; i++ {
		limiter.Allow()
	}

	remaining := limiter.Tokens()
	if remaining < 4 || remaining > 6 {
		t.Fatalf("remaining tokens %f outside expected range 4-6", remaining)
	}
}

func TestUnlimitedRate(t *testing.T) {
	limiter := New(0, 0)

	for i := 0; i < 1000; i++ {
		if !limiter.Allow() {
			t.Fatalf("unlimited limiter should allow event %d", i)
		}
	}
}

func BenchmarkAllow(b *testing.B) {
	limiter := New(1_000_000, 1_000_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow()
	}
}
