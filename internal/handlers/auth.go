package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/utils"
)

// Session issues and clears the auth cookie.
type Session struct {
	JWTSecret string
	Expires   int
	Secure    bool
}

func (s Session) issue(c *fiber.Ctx, u *models.User) error {
	token, err := utils.SignJWT(s.JWTSecret, u.ID.String(), string(u.ActiveRole), s.Expires)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     utils.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: "Lax",
		MaxAge:   s.Expires * 60,
	})
	return nil
}

func (s Session) clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     utils.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: "Lax",
	})
}

type AuthHandler struct {
	Identity *identity.IdentityService
	Session  Session
}

func NewAuthHandler(svc *identity.IdentityService, session Session) *AuthHandler {
	return &AuthHandler{Identity: svc, Session: session}
}

type RegisterReq struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,min=8,max=30"`
	Role     string `json:"role" validate:"omitempty,oneof=customer fundi"`
}

type LoginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SwitchRoleReq struct {
	Role string `json:"role" validate:"required,oneof=customer fundi"`
}

type VerifyOTPReq struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func userView(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                  u.ID,
		"name":                u.Name,
		"email":               u.Email,
		"phone":               u.Phone,
		"roles":               u.Roles,
		"active_role":         u.ActiveRole,
		"is_verified":         u.IsVerified,
		"onboarding_complete": u.OnboardingComplete,
		"state":               identity.StateOf(u),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	u, err := h.Identity.Register(c.UserContext(), identity.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		if e, found := apperr.As(err); found && e.Kind == apperr.KindValidation {
			errs := FieldErrors{}
			errs.Add("email", e.Message)
			return validationFail(c, errs)
		}
		return err
	}

	if err := h.Session.issue(c, u); err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Registration successful", fiber.Map{
		"user":     userView(u),
		"redirect": identity.Landing(u),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	u, err := h.Identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if e, found := apperr.As(err); found && e.Kind == apperr.KindUnauthorized {
			return fiber.NewError(fiber.StatusUnauthorized, e.Message)
		}
		return err
	}

	if err := h.Session.issue(c, u); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Login successful", fiber.Map{
		"user":     userView(u),
		"redirect": identity.Landing(u),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.Session.clear(c)
	return ok(c, fiber.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	u, err := h.Identity.Get(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	wait, err := h.Identity.CooldownRemaining(c.UserContext(), u.ID)
	if err != nil {
		return err
	}

	view := userView(u)
	view["fundi_profile"] = u.FundiProfile
	return ok(c, fiber.StatusOK, "", fiber.Map{
		"user":                 view,
		"landing":              identity.Landing(u),
		"switch_cooldown_secs": int(wait.Round(time.Second).Seconds()),
	})
}

// SwitchRole changes the active role and re-issues the session cookie.
func (h *AuthHandler) SwitchRole(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	var req SwitchRoleReq
	if valid, err := bind(c, &req); !valid {
		return err
	}

	res, err := h.Identity.SwitchRole(c.UserContext(), actor.ID, models.Role(req.Role))
	if err != nil {
		return err
	}
	if err := h.Session.issue(c, res.User); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Switched to "+string(res.ActiveRole), fiber.Map{
		"active_role": res.ActiveRole,
		"redirect":    res.Redirect,
		"user":        userView(res.User),
	})
}

func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	if err := h.Identity.RequestOTP(c.UserContext(), actor.ID); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Verification code sent", nil)
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	actor, err := account(c)
	if err != nil {
		return err
	}
	var req VerifyOTPReq
	if valid, err := bind(c, &req); !valid {
		return err
	}
	if err := h.Identity.VerifyOTP(c.UserContext(), actor.ID, req.Code); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Account verified", fiber.Map{"redirect": identity.RedirectCustomerDashboard})
}

func (h *AuthHandler) Routes(r fiber.Router, g Guards) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	r.Get("/auth/me", g.private(h.Me)...)
	r.Post("/auth/switch-role", g.private(h.SwitchRole)...)
	r.Post("/auth/otp", g.private(h.RequestOTP)...)
	r.Post("/auth/otp/verify", g.private(h.VerifyOTP)...)
}
