package handlers

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/jobs"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"success": false,
		"message": "Validation error",
		"errors":  errs,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + fe.Param()
	case "max":
		return "Must be at most " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gte", "lte", "gt", "lt":
		return "Out of range"
	default:
		return "Invalid value"
	}
}

// bind parses the body into req and runs struct validation. A non-nil error
// means the response has already been written.
func bind(c *fiber.Ctx, req interface{}) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body",
			})
		}
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return false, err
		}
		fe := FieldErrors{}
		for _, v := range verrs {
			fe.Add(v.Field(), fieldMessage(v))
		}
		return false, validationFail(c, fe)
	}
	return true, nil
}

func ok(c *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindForbidden, apperr.KindUnauthorized, apperr.KindRoleError,
		apperr.KindOnboardingIncomplete, apperr.KindUnverified:
		return fiber.StatusForbidden
	case apperr.KindAlreadyProcessed, apperr.KindDuplicateApplication:
		return fiber.StatusConflict
	case apperr.KindRateLimited:
		return fiber.StatusTooManyRequests
	case apperr.KindGatewayError:
		return fiber.StatusBadGateway
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
	}

	e, found := apperr.As(err)
	if !found {
		if log != nil {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error",
		})
	}

	body := fiber.Map{"success": false, "message": e.Message, "code": e.Kind}
	if body["message"] == "" {
		body["message"] = string(e.Kind)
	}
	if e.Redirect != "" {
		body["redirect"] = e.Redirect
	}

	switch e.Kind {
	case apperr.KindRateLimited:
		secs := int(math.Ceil(e.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
		body["retry_after"] = secs
	case apperr.KindAlreadyProcessed:
		body["info"] = true
	case apperr.KindDuplicateApplication:
		body["info"] = true
		var dup *jobs.DuplicateError
		if errors.As(err, &dup) && dup.Existing != nil {
			body["data"] = dup.Existing
		}
	}

	return c.Status(statusOf(e.Kind)).JSON(body)
}

// ErrorHandler renders errors returned from handlers and middleware in the
// standard envelope.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, log, err)
	}
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func account(c *fiber.Ctx) (*models.User, error) {
	u := middleware.Account(c)
	if u == nil {
		return nil, fiber.ErrUnauthorized
	}
	return u, nil
}
