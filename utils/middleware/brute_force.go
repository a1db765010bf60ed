package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/utils/cache"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// AttemptStore is the subset of the Redis cache login throttling needs
type AttemptStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const attemptWindow = 15 * time.Minute

// lockoutFor maps a failed attempt count in the current window to a lockout
func lockoutFor(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	default:
		return 0
	}
}

// BruteForceProtection throttles login attempts per client IP. A nil store
// disables it, so the API still works without Redis.
type BruteForceProtection struct {
	store AttemptStore
	log   *logger.Logger
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(store AttemptStore, log *logger.Logger) *BruteForceProtection {
	return &BruteForceProtection{store: store, log: log}
}

// CheckAndRecordAttempt middleware rejects requests from a locked out IP
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if b.store == nil {
			return c.Next()
		}

		lockKey := cache.LoginLockKey(c.IP())
		locked, err := b.store.Exists(c.UserContext(), lockKey)
		if err != nil {
			// Cache outages must not lock everybody out
			b.log.Warn("brute force check failed", "error", err)
			return c.Next()
		}
		if !locked {
			return c.Next()
		}

		ttl, _ := b.store.TTL(c.UserContext(), lockKey)
		retryAfter := int(ttl.Seconds())
		if retryAfter <= 0 {
			retryAfter = 60
		}

		c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", retryAfter))
		return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
	}
}

// RecordFailedAttempt counts a failed login and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(ctx context.Context, ip string) error {
	if b.store == nil {
		return nil
	}

	attemptKey := cache.LoginAttemptsKey(ip)
	attempts, err := b.store.Increment(ctx, attemptKey)
	if err != nil {
		b.log.Warn("failed to record login attempt", "ip", ip, "error", err)
		return nil
	}
	if attempts == 1 {
		_ = b.store.Expire(ctx, attemptKey, attemptWindow)
	}

	lock := lockoutFor(attempts)
	if lock == 0 {
		return nil
	}

	b.log.Warn("locking out client after failed logins", "ip", ip, "attempts", attempts, "lockout", lock.String())
	return b.store.Set(ctx, cache.LoginLockKey(ip), "locked", lock)
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(ctx context.Context, ip string) error {
	if b.store == nil {
		return nil
	}
	return b.store.Delete(ctx, cache.LoginAttemptsKey(ip), cache.LoginLockKey(ip))
}
