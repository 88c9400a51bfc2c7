package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/logboard/api/pkg/response"
)

// GatewayAuthMiddleware reads user identity from X-User-* headers
// set by the reverse proxy's ForwardAuth and populates Fiber context
// locals. Unauthenticated requests are rejected before reaching the
// ingestion core.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		c.Locals("userId", userID)
		c.Locals("email", c.Get("X-User-Email"))

		return c.Next()
	}
}
