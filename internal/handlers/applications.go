package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/jobs"
)

type ApplicationHandler struct {
	Jobs *jobs.JobService
}

func NewApplicationHandler(js *jobs.JobService) *ApplicationHandler {
	return &ApplicationHandler{Jobs: js}
}

type ApplyReq struct {
	Message      string              `json:"message" validate:"max=2000"`
	ProposedRate decimal.NullDecimal `json:"proposed_rate"`
}

func (h *ApplicationHandler) Apply(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req ApplyReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	app, err := h.Jobs.Apply(c.UserContext(), jobID, actor, jobs.ApplyInput{
		Message:      req.Message,
		ProposedRate: req.ProposedRate,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Application sent", app)
}

func (h *ApplicationHandler) Accept(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	appID, err := paramUUID(c, "appId")
	if err != nil {
		return err
	}

	res, err := h.Jobs.Accept(c.UserContext(), jobID, appID, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Application accepted", fiber.Map{
		"application": res.Application,
		"job":         jobView(res.Job),
		"fee":         res.Fee,
	})
}

func (h *ApplicationHandler) Reject(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	appID, err := paramUUID(c, "appId")
	if err != nil {
		return err
	}

	app, err := h.Jobs.Reject(c.UserContext(), jobID, appID, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Application rejected", app)
}

func (h *ApplicationHandler) Withdraw(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	appID, err := paramUUID(c, "appId")
	if err != nil {
		return err
	}
	app, err := h.Jobs.Withdraw(c.UserContext(), appID, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Application withdrawn", app)
}

func (h *ApplicationHandler) ForJob(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.Jobs.ListApplications(c.UserContext(), jobID, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", list)
}

func (h *ApplicationHandler) Mine(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	list, err := h.Jobs.ListMyApplications(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", list)
}

func (h *ApplicationHandler) Routes(r fiber.Router, g Guards) {
	r.Post("/jobs/:id/applications", g.fundi(h.Apply)...)
	r.Get("/fundi/applications", g.fundi(h.Mine)...)
	r.Post("/applications/:appId/withdraw", g.fundi(h.Withdraw)...)

	r.Get("/jobs/:id/applications", g.customer(h.ForJob)...)
	r.Post("/jobs/:id/applications/:appId/accept", g.customer(h.Accept)...)
	r.Post("/jobs/:id/applications/:appId/reject", g.customer(h.Reject)...)
}
