package ai

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// SummaryHandler serves AI generated review summaries
type SummaryHandler struct {
	summaries *services.SummaryService
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summaries *services.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// SummaryRequest names the course to summarize
type SummaryRequest struct {
	CourseID uint `json:"course_id"`
}

// Summarize handles POST /api/v1/ai/summary
func (h *SummaryHandler) Summarize(c *fiber.Ctx) error {
	var req SummaryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CourseID == 0 {
		return response.FieldError(c, "course_id", "course_id is required")
	}

	summary, err := h.summaries.Summarize(c.UserContext(), req.CourseID)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, summary)
}
