package review

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/handlers/views"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// ApproveRequest carries optional moderator notes
type ApproveRequest struct {
	Notes string `json:"notes"`
}

// FlagRequest lists flag reasons to add to a review
type FlagRequest struct {
	Reasons []string `json:"reasons"`
}

// PendingReviews handles GET /api/v1/moderation/reviews/pending
func (h *ReviewHandler) PendingReviews(c *fiber.Ctx) error {
	if _, ok := moderator(c); !ok {
		return response.Forbidden(c, "Moderator access required")
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", services.DefaultReviewPageSize)
	meta := response.CalculatePagination(page, limit, 0)

	reviews, total, err := h.reviews.Pending(c.UserContext(), meta.CurrentPage, meta.PerPage)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Paginated(c, views.NewModerationViews(reviews), response.CalculatePagination(meta.CurrentPage, meta.PerPage, total))
}

// ApproveReview handles POST /api/v1/moderation/reviews/:id/approve
func (h *ReviewHandler) ApproveReview(c *fiber.Ctx) error {
	mod, ok := moderator(c)
	if !ok {
		return response.Forbidden(c, "Moderator access required")
	}
	id, ok := reviewID(c)
	if !ok {
		return response.BadRequest(c, "Invalid review ID")
	}

	var req ApproveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	review, err := h.reviews.Approve(c.UserContext(), mod.ID, id, req.Notes)
	if err != nil {
		if review != nil && errors.Is(err, services.ErrStatisticsStale) {
			h.log.Warn("Review approved with stale course statistics", "review_id", id, "error", err)
			return response.SuccessWithMessage(c, "Review approved, course statistics could not be updated yet", review)
		}
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Review approved", review)
}

// FlagReview handles POST /api/v1/moderation/reviews/:id/flag
func (h *ReviewHandler) FlagReview(c *fiber.Ctx) error {
	mod, ok := moderator(c)
	if !ok {
		return response.Forbidden(c, "Moderator access required")
	}
	id, ok := reviewID(c)
	if !ok {
		return response.BadRequest(c, "Invalid review ID")
	}

	var req FlagRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	review, err := h.reviews.Flag(c.UserContext(), mod.ID, id, req.Reasons)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Review flagged", review)
}
