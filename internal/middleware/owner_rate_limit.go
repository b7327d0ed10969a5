package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const ownerRateLimitPrefix = "pdavault:rl:owner:"

// OwnerRateLimit caps mutating requests per owner per minute using a fixed Redis window.
// The owner is read from the :owner route parameter, falling back to the client IP.
func OwnerRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := c.Params("owner")
		if subject == "" {
			subject = c.IP()
		}
		key := ownerRateLimitPrefix + subject

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "too many requests for this owner, try again later",
			})
		}
		return c.Next()
	}
}
