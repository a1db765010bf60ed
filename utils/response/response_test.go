package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int64
		wantPage   int
		wantLimit  int
		wantTotalP int
	}{
		{"exact pages", 1, 10, 30, 1, 10, 3},
		{"partial last page", 2, 10, 31, 2, 10, 4},
		{"no results", 1, 20, 0, 1, 20, 0},
		{"defaults", 0, 0, 5, 1, 10, 1},
		{"limit capped", 1, 500, 250, 1, 100, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := CalculatePagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.wantPage, meta.CurrentPage)
			assert.Equal(t, tt.wantLimit, meta.PerPage)
			assert.Equal(t, tt.wantTotalP, meta.TotalPages)
		})
	}
}

func TestServiceErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		field    string
	}{
		{"validation", services.NewValidationError("rating.overall", "must be at most 10"), 422, "VALIDATION_ERROR", "rating.overall"},
		{"conflict", &services.ConflictError{Resource: "review", Message: "already reviewed"}, 409, "CONFLICT", ""},
		{"not found", fmt.Errorf("load: %w", &services.NotFoundError{Resource: "course", ID: 9}), 404, "NOT_FOUND", ""},
		{"forbidden", fmt.Errorf("edit: %w", services.ErrForbidden), 403, "FORBIDDEN", ""},
		{"dependency", &services.DependencyError{Dependency: "summarizer", Err: errors.New("down")}, 503, "SERVICE_UNAVAILABLE", ""},
		{"timeout", &services.DependencyError{Dependency: "summarizer", Timeout: true, Err: errors.New("slow")}, 504, "GATEWAY_TIMEOUT", ""},
		{"unknown", errors.New("boom"), 500, "INTERNAL_ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return ServiceError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var out Response
			require.NoError(t, json.Unmarshal(body, &out))
			assert.False(t, out.Success)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.code, out.Error.Code)
			assert.Equal(t, tt.field, out.Error.Field)
		})
	}
}

func TestServiceErrorListsEveryInvalidField(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return ServiceError(c, &services.ValidationError{
			Field:   "name",
			Message: "name is required",
			Fields:  map[string]string{"name": "name is required", "type": "type must be one of [FEC OE PE MOOC]"},
		})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Error)
	assert.Equal(t, "name", out.Error.Field)
	assert.Len(t, out.Error.Fields, 2)
	assert.Contains(t, out.Error.Fields, "type")
}
