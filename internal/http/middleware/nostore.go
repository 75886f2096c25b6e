package middleware

import "github.com/gofiber/fiber/v2"

// NoStore marks responses as uncacheable. Scan results are computed from live
// market data and must not be served from intermediaries.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Next()
	}
}
