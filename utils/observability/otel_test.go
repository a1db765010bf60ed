package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestInitOTelDisabled(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.NewNop(), OtelConfig{Enabled: false})
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.1, clampRatio(0))
	assert.Equal(t, 0.5, clampRatio(0.5))
	assert.Equal(t, 1.0, clampRatio(3))
}

func TestTracingMiddlewareSetsUserContext(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())

	var sawSpan bool
	app.Get("/courses/:id", func(c *fiber.Ctx) error {
		sawSpan = trace.SpanFromContext(c.UserContext()) != nil
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/courses/3", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.True(t, sawSpan)
}
