package inference

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket in front of the inference API. Summary
// requests for different courses are not de-duplicated, so without it a
// burst of cache misses turns into a burst of 429s.
type RateLimiter struct {
	mu sync.Mutex

	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// RateLimiterConfig holds configuration for the rate limiter
type RateLimiterConfig struct {
	MaxTokens  float64 // burst capacity
	RefillRate float64 // tokens per second
}

// DefaultRateLimiterConfig allows a burst of 5 and one call every two seconds
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxTokens:  5,
		RefillRate: 0.5,
	}
}

// NewRateLimiter creates a full bucket
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxTokens < 1 {
		config.MaxTokens = 1
	}
	if config.RefillRate <= 0 {
		config.RefillRate = DefaultRateLimiterConfig().RefillRate
	}
	return &RateLimiter{
		tokens:     config.MaxTokens,
		maxTokens:  config.MaxTokens,
		refillRate: config.RefillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserve()
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token without blocking
func (r *RateLimiter) TryAcquire() bool {
	return r.reserve() == 0
}

// reserve takes a token and returns 0, or returns how long until one refills
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	missing := 1 - r.tokens
	return time.Duration(missing / r.refillRate * float64(time.Second))
}

// refill must be called with the lock held
func (r *RateLimiter) refill() {
	now := r.now()
	r.tokens += now.Sub(r.lastRefill).Seconds() * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = now
}
