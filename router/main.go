package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-review-api/handlers"
	ai_handlers "github.com/sahilchouksey/course-review-api/handlers/ai"
	auth_handlers "github.com/sahilchouksey/course-review-api/handlers/auth"
	course_handlers "github.com/sahilchouksey/course-review-api/handlers/course"
	review_handlers "github.com/sahilchouksey/course-review-api/handlers/review"
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/middleware"
)

// Dependencies are the handlers and middleware the routes are built from
type Dependencies struct {
	Health     *handlers.HealthHandler
	Auth       *auth_handlers.AuthHandler
	Courses    *course_handlers.CourseHandler
	Reviews    *review_handlers.ReviewHandler
	Summaries  *ai_handlers.SummaryHandler
	AuthGuard  *middleware.AuthMiddleware
	BruteForce *middleware.BruteForceProtection
}

func SetupRoutes(app *fiber.App, d Dependencies) {
	// Health check endpoint (public)
	app.Get("/health", d.Health.HandleCheckHealth)
	app.Get("/ping", d.Health.HandleCheckHealth)

	v1 := app.Group("/api/v1")

	required := d.AuthGuard.Required()
	optional := d.AuthGuard.Optional()
	moderators := middleware.RequireRole(model.RoleModerator, model.RoleAdmin)
	admins := middleware.RequireRole(model.RoleAdmin)

	// Auth routes
	authGroup := v1.Group("/auth")
	authGroup.Post("/register", d.Auth.Register)
	authGroup.Post("/login", d.BruteForce.CheckAndRecordAttempt(), d.Auth.Login)
	authGroup.Post("/refresh", d.Auth.RefreshToken)
	authGroup.Post("/logout", required, d.Auth.Logout)

	// Profile
	v1.Get("/profile", required, d.Auth.GetProfile)
	v1.Put("/profile", required, d.Auth.UpdateProfile)
	v1.Put("/users/:id/verify", required, moderators, d.Auth.VerifyUser)

	// Courses: listing and detail are public, a token only personalises them
	courses := v1.Group("/courses")
	courses.Get("/", optional, d.Courses.ListCourses)
	courses.Get("/popular", d.Courses.PopularCourses)
	courses.Get("/traps", d.Courses.TrapCourses)
	courses.Get("/:id", optional, d.Courses.GetCourse)
	courses.Get("/:id/stats", d.Courses.GetCourseStats)
	courses.Get("/:id/reviews", optional, d.Courses.ListCourseReviews)
	courses.Post("/", required, admins, d.Courses.CreateCourse)
	courses.Put("/:id", required, admins, d.Courses.UpdateCourse)
	courses.Delete("/:id", required, admins, d.Courses.DeleteCourse)

	// Reviews
	reviews := v1.Group("/reviews")
	reviews.Get("/", optional, d.Reviews.ListReviews)
	reviews.Post("/", required, d.Reviews.CreateReview)
	reviews.Get("/mine", required, d.Reviews.MyReviews)
	reviews.Put("/:id", required, d.Reviews.UpdateReview)
	reviews.Post("/:id/vote", required, d.Reviews.VoteReview)
	reviews.Post("/:id/report", required, d.Reviews.ReportReview)

	// Moderation queue
	moderation := v1.Group("/moderation", required, moderators)
	moderation.Get("/reviews/pending", d.Reviews.PendingReviews)
	moderation.Post("/reviews/:id/approve", d.Reviews.ApproveReview)
	moderation.Post("/reviews/:id/flag", d.Reviews.FlagReview)

	// AI
	v1.Post("/ai/summary", d.Summaries.Summarize)
}
