package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const apiKeyHeader = "x-api-key"

// RequireAPIKey guards agent-facing routes with the shared secret the
// interview agent sends in x-api-key.
func RequireAPIKey(key string) fiber.Handler {
	expected := []byte(key)

	return func(c *fiber.Ctx) error {
		got := []byte(c.Get(apiKeyHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
