package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/messaging"
)

type MessageHandler struct {
	Messaging *messaging.MessagingService
}

func NewMessageHandler(ms *messaging.MessagingService) *MessageHandler {
	return &MessageHandler{Messaging: ms}
}

type SendMessageReq struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req SendMessageReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	msg, err := h.Messaging.Send(c.UserContext(), jobID, actor, req.Content)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "", msg)
}

func (h *MessageHandler) List(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.Messaging.List(c.UserContext(), jobID, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", list)
}

// Access tells the client whether the chat box should be enabled.
func (h *MessageHandler) Access(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	allowed, err := h.Messaging.Access(c.UserContext(), jobID, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{"can_chat": allowed})
}

func (h *MessageHandler) Unread(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	n, err := h.Messaging.UnreadCount(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{"total_unread": n})
}

func (h *MessageHandler) Routes(r fiber.Router, g Guards) {
	r.Get("/messages/unread", g.private(h.Unread)...)
	r.Get("/jobs/:id/messages", g.private(h.List)...)
	r.Get("/jobs/:id/messages/access", g.private(h.Access)...)
	r.Post("/jobs/:id/messages", g.private(h.Send)...)
}
