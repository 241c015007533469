// Package ratelimiter wraps golang.org/x/time/rate with the small surface
// BucketFS needs to throttle cache-coherency upcalls.
//
// The invalidation scheduler fires update and invalidate upcalls toward the
// consumer on every tick. A burst of exports or a short tick interval can
// flood the consumer, so upcall dispatch goes through a token bucket. Each
// upcall consumes one token; upcalls that find the bucket empty are skipped
// for that tick rather than queued.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket limiter. All methods are safe for
// concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing eventsPerSecond sustained with up to
// burst tokens available at once.
//
// Special cases:
//   - eventsPerSecond = 0: effectively unlimited
//   - burst = 0: no burst, only the sustained rate
func New(eventsPerSecond, burst uint) *RateLimiter {
	if eventsPerSecond == 0 {
		// rate.Inf has edge cases around SetLimit, so use a large finite rate.
		eventsPerSecond = 1_000_000_000
		burst = eventsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), int(burst)),
	}
}

// Allow reports whether one event may proceed now, consuming a token if so.
// This is the fast path: it never blocks, callers that get false should drop
// the event.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// AllowN reports whether n events may proceed now. Either all n tokens are
// consumed or none are.
func (r *RateLimiter) AllowN(n uint) bool {
	return r.limiter.AllowN(time.Now(), int(n))
}

// Wait blocks until a token is available or ctx is cancelled. Use this on
// paths where the event must not be dropped.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// SetLimit adjusts the sustained rate at runtime. The burst is raised to the
// new rate when it would otherwise fall below it, so the bucket can always
// hold one second of tokens.
func (r *RateLimiter) SetLimit(eventsPerSecond uint) {
	if eventsPerSecond == 0 {
		eventsPerSecond = 1_000_000_000
	}

	r.limiter.SetLimit(rate.Limit(eventsPerSecond))
	if uint(r.limiter.Burst()) < eventsPerSecond {
		r.limiter.SetBurst(int(eventsPerSecond))
	}
}

// Tokens returns the number of tokens currently available. Monitoring only;
// the value can change immediately after the call.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
