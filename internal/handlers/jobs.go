package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/jobs"
)

type JobHandler struct {
	Jobs *jobs.JobService
}

func NewJobHandler(js *jobs.JobService) *JobHandler {
	return &JobHandler{Jobs: js}
}

type JobReq struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"required"`
	CategoryID  *uint               `json:"category_id"`
	Location    string              `json:"location" validate:"required,max=100"`
	Urgency     string              `json:"urgency" validate:"omitempty,oneof=low medium high urgent"`
	BudgetMin   decimal.NullDecimal `json:"budget_min"`
	BudgetMax   decimal.NullDecimal `json:"budget_max"`
	Deadline    *time.Time          `json:"deadline"`
	ImageURLs   []string            `json:"image_urls" validate:"max=10,dive,url"`
}

func (r JobReq) input() jobs.JobInput {
	return jobs.JobInput{
		Title:       r.Title,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Location:    r.Location,
		Urgency:     models.Urgency(r.Urgency),
		BudgetMin:   r.BudgetMin,
		BudgetMax:   r.BudgetMax,
		Deadline:    r.Deadline,
		ImageURLs:   r.ImageURLs,
	}
}

type ReviewReq struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// jobView adds the derived lifecycle state to the job row.
func jobView(j *models.Job) fiber.Map {
	state := "invalid"
	if st, err := jobs.StateOf(j); err == nil {
		state = st.Name()
	}
	return fiber.Map{"job": j, "state": state}
}

func jobViews(list []models.Job) []fiber.Map {
	out := make([]fiber.Map, 0, len(list))
	for i := range list {
		out = append(out, jobView(&list[i]))
	}
	return out
}

func (h *JobHandler) ListOpen(c *fiber.Ctx) error {
	f := jobs.JobFilter{
		Search:   c.Query("q"),
		Category: c.Query("category"),
		Location: c.Query("location"),
		Urgency:  models.Urgency(c.Query("urgency")),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 12),
	}
	list, total, err := h.Jobs.ListOpen(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    jobViews(list),
		"meta": fiber.Map{
			"page":  f.Page,
			"limit": f.Limit,
			"total": total,
		},
	})
}

func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	j, err := h.Jobs.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", jobView(j))
}

func (h *JobHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Jobs.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", cats)
}

func (h *JobHandler) Create(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	var req JobReq
	if valid, err := bind(c, &req); !valid {
		return err
	}
	j, err := h.Jobs.Create(c.UserContext(), actor, req.input())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Job posted", jobView(j))
}

func (h *JobHandler) Update(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req JobReq
	if valid, err := bind(c, &req); !valid {
		return err
	}
	j, err := h.Jobs.Update(c.UserContext(), id, actor, req.input())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Job updated", jobView(j))
}

func (h *JobHandler) Delete(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Jobs.Delete(c.UserContext(), id, actor); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Job deleted", nil)
}

func (h *JobHandler) Mine(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	list, err := h.Jobs.ListForCustomer(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", jobViews(list))
}

func (h *JobHandler) Assigned(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	list, err := h.Jobs.ListForFundi(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", jobViews(list))
}

// transition runs one lifecycle operation against the job in the path.
func (h *JobHandler) transition(message string, op func(context.Context, uuid.UUID, *models.User) (*models.Job, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := account(c)
		if err != nil {
			return err
		}
		id, err := paramUUID(c, "id")
		if err != nil {
			return err
		}
		j, err := op(c.UserContext(), id, actor)
		if err != nil {
			return err
		}
		return ok(c, fiber.StatusOK, message, jobView(j))
	}
}

func (h *JobHandler) Nudge(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.Jobs.Nudge(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Nearby fundis notified", fiber.Map{"notified": n})
}

func (h *JobHandler) Review(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewReq
	if valid, err := bind(c, &req); !valid {
		return err
	}
	r, err := h.Jobs.CreateReview(c.UserContext(), id, actor, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Review submitted", r)
}

func (h *JobHandler) Routes(r fiber.Router, g Guards) {
	r.Get("/categories", h.Categories)
	r.Get("/jobs", h.ListOpen)
	r.Get("/jobs/:id", h.Get)

	r.Post("/jobs", g.customer(h.Create)...)
	r.Get("/customer/jobs", g.customer(h.Mine)...)
	r.Put("/jobs/:id", g.customer(h.Update)...)
	r.Delete("/jobs/:id", g.customer(h.Delete)...)
	r.Post("/jobs/:id/complete", g.customer(h.transition("Job completed", h.Jobs.Complete))...)
	r.Post("/jobs/:id/cancel", g.customer(h.transition("Job cancelled", h.Jobs.Cancel))...)
	r.Post("/jobs/:id/nudge", g.customer(h.Nudge)...)
	r.Post("/jobs/:id/review", g.customer(h.Review)...)

	r.Get("/fundi/jobs", g.fundi(h.Assigned)...)
	r.Post("/jobs/:id/start", g.fundi(h.transition("Job started", h.Jobs.Start))...)
	r.Post("/jobs/:id/request-completion", g.fundi(h.transition("Completion requested", h.Jobs.RequestCompletion))...)
}
