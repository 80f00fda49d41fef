// Package apperr holds the domain error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindUnauthorized         Kind = "unauthorized"
	KindRoleError            Kind = "role_error"
	KindOnboardingIncomplete Kind = "onboarding_incomplete"
	KindUnverified           Kind = "unverified"
	KindAlreadyProcessed     Kind = "already_processed"
	KindDuplicateApplication Kind = "duplicate_application"
	KindRateLimited          Kind = "rate_limited"
	KindGatewayError         Kind = "gateway_error"
	KindValidation           Kind = "validation"
)

// Error is a classified domain failure. Redirect names the remediation flow for
// role/onboarding errors, RetryAfter the wait hint for rate limiting.
type Error struct {
	Kind       Kind
	Message    string
	Redirect   string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrForbidden) works
// for every forbidden failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// sentinels for errors.Is
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrRoleError            = &Error{Kind: KindRoleError}
	ErrOnboardingIncomplete = &Error{Kind: KindOnboardingIncomplete}
	ErrUnverified           = &Error{Kind: KindUnverified}
	ErrAlreadyProcessed     = &Error{Kind: KindAlreadyProcessed}
	ErrDuplicateApplication = &Error{Kind: KindDuplicateApplication}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrGateway              = &Error{Kind: KindGatewayError}
	ErrValidation           = &Error{Kind: KindValidation}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error         { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error        { return New(KindForbidden, msg) }
func AlreadyProcessed(msg string) *Error { return New(KindAlreadyProcessed, msg) }
func Validation(msg string) *Error       { return New(KindValidation, msg) }

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
