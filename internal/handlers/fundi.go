package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/wallet"
)

type FundiHandler struct {
	Identity *identity.IdentityService
	Jobs     *jobs.JobService
	Wallets  *wallet.WalletService
}

func NewFundiHandler(id *identity.IdentityService, js *jobs.JobService, w *wallet.WalletService) *FundiHandler {
	return &FundiHandler{Identity: id, Jobs: js, Wallets: w}
}

type PortfolioReq struct {
	ImageURL    string `json:"image_url" validate:"required,url"`
	Title       string `json:"title" validate:"max=100"`
	Description string `json:"description"`
}

type OnboardingReq struct {
	Location        string              `json:"location" validate:"required,max=100"`
	PhotoURL        string              `json:"photo_url" validate:"omitempty,url"`
	IDDocumentURL   string              `json:"id_document_url" validate:"omitempty,url"`
	Skills          []string            `json:"skills" validate:"required,min=1,dive,required,max=50"`
	ExperienceYears int                 `json:"experience_years" validate:"gte=0,lte=80"`
	HourlyRate      decimal.NullDecimal `json:"hourly_rate"`
	Description     string              `json:"description"`
	Latitude        *float64            `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64            `json:"longitude" validate:"omitempty,longitude"`
	Portfolio       []PortfolioReq      `json:"portfolio" validate:"dive"`
}

type ProfileUpdateReq struct {
	Skills       []string             `json:"skills" validate:"omitempty,min=1,dive,required,max=50"`
	Description  *string              `json:"description"`
	HourlyRate   *decimal.NullDecimal `json:"hourly_rate"`
	Availability *bool                `json:"availability"`
	Location     *string              `json:"location" validate:"omitempty,max=100"`
	Latitude     *float64             `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64             `json:"longitude" validate:"omitempty,longitude"`
}

// Onboarding completes the fundi profile. The account must already be in
// the fundi context.
func (h *FundiHandler) Onboarding(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	var req OnboardingReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	in := identity.OnboardingInput{
		Location:        req.Location,
		PhotoURL:        req.PhotoURL,
		IDDocumentURL:   req.IDDocumentURL,
		Skills:          req.Skills,
		ExperienceYears: req.ExperienceYears,
		HourlyRate:      req.HourlyRate,
		Description:     req.Description,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
	}
	for _, p := range req.Portfolio {
		in.Portfolio = append(in.Portfolio, identity.PortfolioInput{
			ImageURL:    p.ImageURL,
			Title:       p.Title,
			Description: p.Description,
		})
	}

	profile, err := h.Identity.CompleteOnboarding(c.UserContext(), actor.ID, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Profile submitted for review", fiber.Map{
		"profile":  profile,
		"redirect": identity.RedirectFundiDashboard,
	})
}

func (h *FundiHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	var req ProfileUpdateReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	profile, err := h.Identity.UpdateProfile(c.UserContext(), actor.ID, identity.ProfileUpdate{
		Skills:       req.Skills,
		Description:  req.Description,
		HourlyRate:   req.HourlyRate,
		Availability: req.Availability,
		Location:     req.Location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Profile updated", profile)
}

// PublicProfile shows a fundi's profile and received reviews.
func (h *FundiHandler) PublicProfile(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Identity.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !u.HasRole(models.RoleFundi) || u.FundiProfile == nil {
		return apperr.NotFound("fundi not found")
	}
	reviews, err := h.Jobs.ReviewsFor(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", fiber.Map{
		"id":       u.ID,
		"name":     u.Name,
		"location": u.Location,
		"profile":  u.FundiProfile,
		"reviews":  reviews,
	})
}

func (h *FundiHandler) Wallet(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	summary, err := h.Wallets.Summary(c.UserContext(), actor.ID, c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", summary)
}

func (h *FundiHandler) Routes(r fiber.Router, g Guards) {
	r.Get("/fundis/:id", h.PublicProfile)

	// onboarding runs before the fundi gate is satisfied
	r.Post("/fundi/onboarding", g.private(h.Onboarding)...)

	r.Put("/fundi/profile", g.fundi(h.UpdateProfile)...)
	r.Get("/fundi/wallet", g.fundi(h.Wallet)...)
}
