package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/gateway"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/payment"
)

type PaymentHandler struct {
	Payments       *payment.PaymentService
	CallbackSecret string
	Log            *zap.Logger
}

func NewPaymentHandler(ps *payment.PaymentService, callbackSecret string, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: ps, CallbackSecret: callbackSecret, Log: log}
}

type PayFeeReq struct {
	Phone string `json:"phone" validate:"omitempty,min=9,max=15"`
}

type InitiatePaymentReq struct {
	Amount decimal.Decimal `json:"amount"`
	Phone  string          `json:"phone" validate:"omitempty,min=9,max=15"`
}

// PayFee pushes the mediation fee prompt to the payer's phone.
func (h *PaymentHandler) PayFee(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req PayFeeReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	p, err := h.Payments.PayFee(c.UserContext(), jobID, actor, req.Phone)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusAccepted, p.CustomerMessage, p)
}

func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req InitiatePaymentReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	p, err := h.Payments.InitiatePayment(c.UserContext(), jobID, actor, req.Amount, req.Phone)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusAccepted, p.CustomerMessage, p)
}

func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Payments.Get(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", p)
}

func (h *PaymentHandler) Refresh(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Payments.Refresh(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", p)
}

func (h *PaymentHandler) List(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	list, err := h.Payments.ListForUser(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", list)
}

// Callback receives the gateway's asynchronous result. Once the payload is
// understood the gateway always gets a 200, whatever the settlement outcome.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	body := c.Body()

	if h.CallbackSecret != "" {
		if !gateway.ValidateSignature(h.CallbackSecret, body, c.Get("X-Callback-Signature")) {
			h.Log.Warn("payment callback with invalid signature", zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid signature"})
		}
	}

	cb, err := gateway.ParseCallback(body)
	if err != nil {
		h.Log.Warn("unparseable payment callback", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid payload"})
	}

	h.Log.Info("payment callback",
		zap.String("correlation_id", cb.CorrelationID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("receipt", cb.Receipt),
	)
	if err := h.Payments.Settle(c.UserContext(), cb.CorrelationID, cb.Outcome()); err != nil {
		h.Log.Error("settle from callback", zap.String("correlation_id", cb.CorrelationID), zap.Error(err))
	}

	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *PaymentHandler) Routes(r fiber.Router, g Guards) {
	r.Post("/payments/callback", h.Callback)

	r.Get("/payments", g.private(h.List)...)
	r.Get("/payments/:id", g.private(h.Get)...)
	r.Post("/payments/:id/refresh", g.private(h.Refresh)...)
	r.Post("/jobs/:id/fee", g.private(h.PayFee)...)
	r.Post("/jobs/:id/payments", g.customer(h.Initiate)...)
}
