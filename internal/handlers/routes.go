package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

// Guards are the middleware chains attached per route. Group-level
// middleware would also run for the public routes sharing a prefix.
type Guards struct {
	Auth     []fiber.Handler
	Customer fiber.Handler
	Fundi    fiber.Handler
}

func NewGuards(secret string, db *gorm.DB) Guards {
	return Guards{
		Auth:     []fiber.Handler{middleware.JWTFromCookie(secret), middleware.LoadAccount(db)},
		Customer: middleware.RequireActiveRole(models.RoleCustomer),
		Fundi:    middleware.RequireActiveRole(models.RoleFundi),
	}
}

func (g Guards) private(h ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(g.Auth)+len(h))
	out = append(out, g.Auth...)
	return append(out, h...)
}

func (g Guards) customer(h fiber.Handler) []fiber.Handler {
	return g.private(g.Customer, h)
}

func (g Guards) fundi(h fiber.Handler) []fiber.Handler {
	return g.private(g.Fundi, h)
}

type Handlers struct {
	Auth          *AuthHandler
	Google        *GoogleOAuthHandler
	Fundi         *FundiHandler
	Jobs          *JobHandler
	Applications  *ApplicationHandler
	Payments      *PaymentHandler
	Messages      *MessageHandler
	Notifications *NotificationHandler
	Discovery     *DiscoveryHandler
}

// Mount registers the REST surface on r. Static paths are registered before
// the parameterised ones they would otherwise collide with.
func (hs Handlers) Mount(r fiber.Router, g Guards) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	hs.Auth.Routes(r, g)
	if hs.Google != nil {
		hs.Google.Routes(r)
	}
	hs.Discovery.Routes(r)
	hs.Fundi.Routes(r, g)
	hs.Jobs.Routes(r, g)
	hs.Applications.Routes(r, g)
	hs.Payments.Routes(r, g)
	hs.Messages.Routes(r, g)
	hs.Notifications.Routes(r, g)
}
