package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/discovery"
)

type DiscoveryHandler struct {
	Discovery *discovery.DiscoveryService
}

func NewDiscoveryHandler(d *discovery.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{Discovery: d}
}

// FundiLocations feeds the map view: fundis with known coordinates.
func (h *DiscoveryHandler) FundiLocations(c *fiber.Ctx) error {
	list, err := h.Discovery.FundiLocations(c.UserContext(), c.Query("skill"), c.QueryBool("available"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", list)
}

func (h *DiscoveryHandler) Routes(r fiber.Router) {
	r.Get("/fundis/locations", h.FundiLocations)
}
