package review

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/handlers/views"
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/sahilchouksey/course-review-api/utils/middleware"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// ReviewHandler handles review submission, engagement and moderation
type ReviewHandler struct {
	reviews *services.ReviewService
	query   *services.CourseQueryService
	log     *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *services.ReviewService, query *services.CourseQueryService, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		query:   query,
		log:     log,
	}
}

// VoteRequest is a helpfulness vote
type VoteRequest struct {
	Helpful *bool `json:"helpful"`
}

// ListReviews handles GET /api/v1/reviews?course=<id>
func (h *ReviewHandler) ListReviews(c *fiber.Ctx) error {
	courseID := c.QueryInt("course", c.QueryInt("course_id", 0))
	if courseID < 0 {
		return response.FieldError(c, "course", "course must be a positive id")
	}

	page, err := h.query.ListReviews(c.UserContext(), services.ReviewQuery{
		CourseID: uint(courseID),
		SortBy:   c.Query("sortBy", c.Query("sort_by")),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", services.DefaultReviewPageSize),
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	viewerID, _ := middleware.GetUserID(c)
	return response.Paginated(c, views.NewReviewViews(page.Items, viewerID), response.PaginationMeta{
		CurrentPage: page.Page,
		PerPage:     page.Limit,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
	})
}

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	review, err := h.reviews.Create(c.UserContext(), userID, req, activityContext(c))
	if err != nil {
		if review != nil && errors.Is(err, services.ErrStatisticsStale) {
			// The review is stored; only the course numbers lag behind
			h.log.Warn("Review stored with stale course statistics", "review_id", review.ID, "error", err)
			return c.Status(fiber.StatusCreated).JSON(response.Response{
				Success: true,
				Message: "Review submitted, course statistics could not be updated yet",
				Data:    views.NewReviewView(review, userID),
			})
		}
		return response.ServiceError(c, err)
	}

	message := "Review submitted and pending moderation"
	if review.IsApproved {
		message = "Review published"
	}
	return c.Status(fiber.StatusCreated).JSON(response.Response{
		Success: true,
		Message: message,
		Data:    views.NewReviewView(review, userID),
	})
}

// MyReviews handles GET /api/v1/reviews/mine
func (h *ReviewHandler) MyReviews(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, err := h.query.UserReviews(c.UserContext(), userID, c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultReviewPageSize))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Paginated(c, views.NewReviewViews(page.Items, userID), response.PaginationMeta{
		CurrentPage: page.Page,
		PerPage:     page.Limit,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
	})
}

// UpdateReview handles PUT /api/v1/reviews/:id
func (h *ReviewHandler) UpdateReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := reviewID(c)
	if !ok {
		return response.BadRequest(c, "Invalid review ID")
	}

	var req services.ReviewEditInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	review, err := h.reviews.Edit(c.UserContext(), userID, id, req)
	if err != nil {
		if review != nil && errors.Is(err, services.ErrStatisticsStale) {
			h.log.Warn("Review edited with stale course statistics", "review_id", review.ID, "error", err)
			return response.SuccessWithMessage(c, "Review updated, course statistics could not be updated yet", views.NewReviewView(review, userID))
		}
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Review updated successfully", views.NewReviewView(review, userID))
}

// VoteReview handles POST /api/v1/reviews/:id/vote
func (h *ReviewHandler) VoteReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := reviewID(c)
	if !ok {
		return response.BadRequest(c, "Invalid review ID")
	}

	var req VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Helpful == nil {
		return response.FieldError(c, "helpful", "helpful is required")
	}

	if err := h.reviews.Vote(c.UserContext(), userID, id, *req.Helpful, activityContext(c)); err != nil {
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Vote recorded", nil)
}

// ReportReview handles POST /api/v1/reviews/:id/report
func (h *ReviewHandler) ReportReview(c *fiber.Ctx) error {
	id, ok := reviewID(c)
	if !ok {
		return response.BadRequest(c, "Invalid review ID")
	}
	if err := h.reviews.Report(c.UserContext(), id); err != nil {
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Review reported", nil)
}

func reviewID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func activityContext(c *fiber.Ctx) services.ActivityContext {
	return services.ActivityContext{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

func moderator(c *fiber.Ctx) (*model.User, bool) {
	user, ok := middleware.GetUser(c)
	if !ok || !user.CanModerate() {
		return nil, false
	}
	return user, true
}
