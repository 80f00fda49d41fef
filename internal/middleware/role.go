package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
)

// RequireActiveRole rejects requests whose account may not act in role.
// The returned error is rendered by the app's error handler.
func RequireActiveRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := Account(c)
		if u == nil {
			return fiber.ErrUnauthorized
		}
		if err := identity.Authorize(u, role); err != nil {
			return err
		}
		return c.Next()
	}
}
