package app

import (
	"github.com/sahilchouksey/course-review-api/database"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"gorm.io/gorm"
)

// Services are the domain services over the Postgres repositories. The HTTP
// server and the command line tools share them so both go through the same
// validation, gate and recompute path.
type Services struct {
	Users    *database.UserRepository
	CourseDB *database.CourseRepository
	ReviewDB *database.ReviewRepository
	Courses  *services.CourseService
	Reviews  *services.ReviewService
	Accounts *services.AccountService
	Query    *services.CourseQueryService
	Stats    *services.CourseStatsService
}

// NewServices wires the domain services to db
func NewServices(db *gorm.DB, log *logger.Logger) *Services {
	courseRepo := database.NewCourseRepository(db)
	reviewRepo := database.NewReviewRepository(db)
	userRepo := database.NewUserRepository(db)

	stats := services.NewCourseStatsService(courseRepo, log.With("component", "stats"))

	return &Services{
		Users:    userRepo,
		CourseDB: courseRepo,
		ReviewDB: reviewRepo,
		Courses:  services.NewCourseService(courseRepo, log.With("component", "courses")),
		Reviews:  services.NewReviewService(reviewRepo, courseRepo, userRepo, stats, log.With("component", "reviews")),
		Accounts: services.NewAccountService(userRepo, log.With("component", "accounts")),
		Query:    services.NewCourseQueryService(courseRepo, reviewRepo, userRepo, log.With("component", "query")),
		Stats:    stats,
	}
}
