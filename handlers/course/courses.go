package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/handlers/views"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/middleware"
	"github.com/sahilchouksey/course-review-api/utils/response"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	query   *services.CourseQueryService
	courses *services.CourseService
	stats   *services.CourseStatsService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(query *services.CourseQueryService, courses *services.CourseService, stats *services.CourseStatsService) *CourseHandler {
	return &CourseHandler{
		query:   query,
		courses: courses,
		stats:   stats,
	}
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, err := h.query.ListCourses(c.UserContext(), services.CourseQuery{
		Search: c.Query("search"),
		Type:   c.Query("type"),
		Goal:   c.Query("goal"),
		SortBy: c.Query("sortBy", c.Query("sort_by")),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", services.DefaultCoursePageSize),
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Paginated(c, views.NewCourseViews(page.Items), pagination(page.Page, page.Limit, page.Total, page.TotalPages))
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	detail, err := h.query.GetCourse(c.UserContext(), id)
	if err != nil {
		return response.ServiceError(c, err)
	}

	viewerID, _ := middleware.GetUserID(c)
	h.query.RecordView(c.UserContext(), viewerID, id, services.ActivityContext{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})

	return response.Success(c, views.NewCourseDetailView(detail, viewerID))
}

// GetCourseStats handles GET /api/v1/courses/:id/stats
func (h *CourseHandler) GetCourseStats(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	stats, err := h.stats.CourseAggregate(c.UserContext(), id)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, stats)
}

// ListCourseReviews handles GET /api/v1/courses/:id/reviews
func (h *CourseHandler) ListCourseReviews(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	page, err := h.query.ListReviews(c.UserContext(), services.ReviewQuery{
		CourseID: id,
		SortBy:   c.Query("sortBy", c.Query("sort_by")),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", services.DefaultReviewPageSize),
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	viewerID, _ := middleware.GetUserID(c)
	return response.Paginated(c, views.NewReviewViews(page.Items, viewerID), pagination(page.Page, page.Limit, page.Total, page.TotalPages))
}

// PopularCourses handles GET /api/v1/courses/popular
func (h *CourseHandler) PopularCourses(c *fiber.Ctx) error {
	courses, err := h.query.Popular(c.UserContext(), c.QueryInt("limit", services.DefaultHighlightLimit))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, views.NewCourseViews(courses))
}

// TrapCourses handles GET /api/v1/courses/traps
func (h *CourseHandler) TrapCourses(c *fiber.Ctx) error {
	courses, err := h.query.Traps(c.UserContext(), c.QueryInt("limit", services.DefaultHighlightLimit))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, views.NewCourseViews(courses))
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	course, err := h.courses.Create(c.UserContext(), req)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Created(c, views.NewCourseView(course))
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	course, err := h.courses.Update(c.UserContext(), id, req)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Course updated successfully", views.NewCourseView(course))
}

// DeleteCourse handles DELETE /api/v1/courses/:id. Courses are deactivated
// rather than removed so their reviews stay intact.
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.courses.Deactivate(c.UserContext(), id); err != nil {
		return response.ServiceError(c, err)
	}
	return response.NoContent(c)
}

func courseID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func pagination(page, limit int, total int64, totalPages int) response.PaginationMeta {
	return response.PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		TotalPages:  totalPages,
	}
}
