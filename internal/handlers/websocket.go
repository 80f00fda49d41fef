package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/utils"
)

type RealtimeHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
	Log       *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, secret string, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{Hub: hub, JWTSecret: secret, Log: log}
}

// Upgrade authenticates the handshake with the session cookie, or a token
// query parameter for clients that cannot send cookies.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := c.Cookies(utils.CookieName)
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}
	if tokenStr == "" {
		return fiber.ErrUnauthorized
	}
	claims, err := utils.ParseJWT(h.JWTSecret, tokenStr)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	c.Locals("userId", uid)
	return c.Next()
}

func (h *RealtimeHandler) Serve(c *websocket.Conn) {
	userID, _ := c.Locals("userId").(uuid.UUID)
	if userID == uuid.Nil {
		_ = c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	h.Log.Debug("websocket connected", zap.Stringer("user_id", userID))
	defer func() {
		h.Hub.UnregisterClient(client)
		h.Log.Debug("websocket disconnected", zap.Stringer("user_id", userID))
	}()

	go func() {
		if err := client.Conn.WritePump(client.Send); err != nil {
			h.Log.Debug("websocket write", zap.Stringer("user_id", userID), zap.Error(err))
		}
	}()

	// Inbound frames only keep the connection alive.
	_ = client.Conn.ReadLoop(func(payload map[string]interface{}) {
		if t, _ := payload["type"].(string); t == "ping" {
			h.Hub.SendToUser(userID, fiber.Map{"type": "pong"})
		}
	})
}

func (h *RealtimeHandler) Routes(app fiber.Router) {
	app.Get("/ws", h.Upgrade, websocket.New(h.Serve))
}
