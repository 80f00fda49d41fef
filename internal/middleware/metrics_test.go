package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsRenderedStatus(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusTeapot).SendString(err.Error())
		},
	})
	app.Use(Metrics())
	app.Get("/boom/:id", func(c *fiber.Ctx) error { return fiber.ErrBadRequest })
	app.Get("/fine", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	before := promtest.ToFloat64(httpReqTotal.WithLabelValues("GET", "/boom/:id", "418"))

	resp, err := app.Test(httptest.NewRequest("GET", "/boom/7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, before+1, promtest.ToFloat64(httpReqTotal.WithLabelValues("GET", "/boom/:id", "418")))

	resp, err = app.Test(httptest.NewRequest("GET", "/fine", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, float64(1), promtest.ToFloat64(httpReqTotal.WithLabelValues("GET", "/fine", "204")))
}
