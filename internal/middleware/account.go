package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/utils"
)

// LoadAccount resolves the token's subject to an active account. The active
// role is read from the account row, not the token, so a role switch takes
// effect even if an older cookie is replayed.
func LoadAccount(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			return fiber.ErrUnauthorized
		}

		uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		var u models.User
		if err := db.WithContext(c.UserContext()).First(&u, "id = ?", uid).Error; err != nil {
			return fiber.ErrUnauthorized
		}
		if !u.IsActive {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", u.ID.String())
		c.Locals("role", string(u.ActiveRole))
		c.Locals("account", &u)
		return c.Next()
	}
}

// Account returns the account loaded by LoadAccount.
func Account(c *fiber.Ctx) *models.User {
	u, _ := c.Locals("account").(*models.User)
	return u
}
