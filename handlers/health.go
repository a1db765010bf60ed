package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness and dependency health
type HealthHandler struct {
	checks  map[string]HealthCheck
	started time.Time
}

// NewHealthHandler creates a health handler over named checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, started: time.Now()}
}

// HandleCheckHealth handles GET /health
func (h *HealthHandler) HandleCheckHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	body := fiber.Map{
		"status":     status,
		"components": components,
		"uptime":     time.Since(h.started).Round(time.Second).String(),
	}
	if status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response.Response{Success: false, Data: body})
	}
	return response.Success(c, body)
}
