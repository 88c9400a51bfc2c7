package response

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the uniform error body for every endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: message})
}

func ValidationError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// RateLimited sets the Retry-After header before responding 429
func RateLimited(c *fiber.Ctx, retryAfterSeconds int) error {
	c.Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds))
	return Error(c, fiber.StatusTooManyRequests, "Rate limit exceeded")
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}
