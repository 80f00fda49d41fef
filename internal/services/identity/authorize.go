package identity

import (
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

const (
	RedirectDashboard         = "/dashboard"
	RedirectOTP               = "/auth/otp"
	RedirectOnboarding        = "/fundi/onboarding"
	RedirectCustomerDashboard = "/customer/dashboard"
	RedirectFundiDashboard    = "/fundi/dashboard"
)

// Authorize checks that u may act in the required role context. It is the
// only place role, verification and onboarding requirements are enforced.
func Authorize(u *models.User, required models.Role) error {
	if u == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if u.ActiveRole != required || !u.HasRole(required) {
		return &apperr.Error{
			Kind:     apperr.KindRoleError,
			Message:  "switch to " + string(required) + " to continue",
			Redirect: RedirectDashboard,
		}
	}

	switch required {
	case models.RoleCustomer:
		if !u.IsVerified {
			return &apperr.Error{
				Kind:     apperr.KindUnverified,
				Message:  "verify your account first",
				Redirect: RedirectOTP,
			}
		}
	case models.RoleFundi:
		if !u.OnboardingComplete {
			return &apperr.Error{
				Kind:     apperr.KindOnboardingIncomplete,
				Message:  "complete your fundi profile first",
				Redirect: RedirectOnboarding,
			}
		}
	}
	return nil
}

type State string

const (
	StateNoFundiRole     State = "no_fundi_role"
	StateFundiOnboarding State = "fundi_onboarding_incomplete"
	StateFundiActive     State = "fundi_active"
	StateCustomerActive  State = "customer_active"
)

// StateOf derives the identity state from the held roles, active role and
// onboarding flag.
func StateOf(u *models.User) State {
	if u.ActiveRole == models.RoleFundi {
		if u.OnboardingComplete {
			return StateFundiActive
		}
		return StateFundiOnboarding
	}
	if !u.HasRole(models.RoleFundi) {
		return StateNoFundiRole
	}
	return StateCustomerActive
}

// Landing is where the account should go after login or a role switch.
func Landing(u *models.User) string {
	if u.ActiveRole == models.RoleFundi {
		if u.OnboardingComplete {
			return RedirectFundiDashboard
		}
		return RedirectOnboarding
	}
	return RedirectCustomerDashboard
}
