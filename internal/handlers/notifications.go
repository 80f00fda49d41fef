package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
)

type NotificationHandler struct {
	Notify *notify.NotifyService
}

func NewNotificationHandler(n *notify.NotifyService) *NotificationHandler {
	return &NotificationHandler{Notify: n}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	list, err := h.Notify.List(c.UserContext(), actor.ID, c.QueryBool("unread"), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	unread, err := h.Notify.UnreadCount(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
		"meta":    fiber.Map{"unread": unread},
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Notify.MarkRead(c.UserContext(), actor.ID, id); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	n, err := h.Notify.MarkAllRead(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{"updated": n})
}

func (h *NotificationHandler) Routes(r fiber.Router, g Guards) {
	r.Get("/notifications", g.private(h.List)...)
	r.Post("/notifications/read-all", g.private(h.MarkAllRead)...)
	r.Post("/notifications/:id/read", g.private(h.MarkRead)...)
}
