package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"unihub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when the rate limit store
// cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed rejects the request with 503 Service Unavailable.
	FailClosed
)

// limitsDisabled reports whether rate limiting is switched off for the
// current environment. Test and development runs are never throttled.
func limitsDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// CheckRateLimit counts a hit against the resource/id bucket and reports
// whether the caller is still within limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if limitsDisabled() {
		return true, nil
	}
	if rdb == nil {
		return false, errors.New("rate limit store not configured")
	}

	bucket := fmt.Sprintf("rl:%s:%s", resource, id)
	hits, err := rdb.Incr(ctx, bucket).Result()
	if err != nil {
		return false, err
	}
	if hits == 1 {
		// First hit opens the window.
		rdb.Expire(ctx, bucket, window)
	}
	return hits <= int64(limit), nil
}

// RateLimit enforces limit requests per window for a route, keyed by the
// authenticated user when present and by remote IP otherwise. Fails open
// when Redis is unreachable; use RateLimitWithPolicy for routes that must
// fail closed.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := fmt.Sprintf("ip:%s", c.IP())
		if uid := c.Locals("userID"); uid != nil {
			id = fmt.Sprintf("user:%v", uid)
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(context.Background(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				if Logger != nil {
					Logger.Warn("rate limit store unreachable, failing closed",
						"resource", resource, "error", err.Error())
				}
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					&models.AppError{Code: models.CodeInternal, Message: "Rate limiting temporarily unavailable"})
			}
			return c.Next()
		}

		if !allowed {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewAuthError(models.CodeRateLimited, "Too many requests, please try again later."))
		}
		return c.Next()
	}
}
