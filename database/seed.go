package database

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db       *gorm.DB
	accounts *services.AccountService
	courses  *services.CourseService
	log      *logger.Logger
}

// AdminCredentials is the account SeedAdminUser creates
type AdminCredentials struct {
	Username string
	Email    string
	Password string
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, accounts *services.AccountService, courses *services.CourseService, log *logger.Logger) *Seeder {
	return &Seeder{db: db, accounts: accounts, courses: courses, log: log}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll(ctx context.Context, admin AdminCredentials) error {
	s.log.Info("Starting database seeding")

	if err := s.SeedAdminUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := s.SeedCourses(ctx); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	s.log.Info("Database seeding completed")
	return nil
}

// SeedAdminUser creates the first admin. It is skipped when an admin exists
// or no credentials are given.
func (s *Seeder) SeedAdminUser(ctx context.Context, admin AdminCredentials) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("Admin user already exists, skipping")
		return nil
	}

	if admin.Email == "" || admin.Password == "" {
		s.log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}
	if admin.Username == "" {
		admin.Username = "admin"
	}

	user, err := s.accounts.Provision(ctx, services.RegisterInput{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
		Profile:  services.ProfileInput{FirstName: "System", LastName: "Administrator"},
	}, model.RoleAdmin, true)
	if err != nil {
		return err
	}

	s.log.Info("Created admin user", "user_id", user.ID, "username", user.Username)
	return nil
}

// SeedCourses creates a handful of sample electives when the catalogue is empty
func (s *Seeder) SeedCourses(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("Courses already exist, skipping")
		return nil
	}

	for _, in := range sampleCourses() {
		if _, err := s.courses.Create(ctx, in); err != nil {
			return fmt.Errorf("course %d: %w", in.CourseNumber, err)
		}
	}

	s.log.Info("Created sample courses", "count", len(sampleCourses()))
	return nil
}

func sampleCourses() []services.CourseInput {
	credits := 3
	return []services.CourseInput{
		{
			CourseNumber: 101,
			Name:         "Introduction to Photography",
			Type:         string(model.CourseTypeFEC),
			Description:  "Composition, light and editing basics with weekly photo walks",
			Department:   "Fine Arts",
			HasNoExam:    true,
			IsNew:        true,
			Tags:         []string{"creative"},
		},
		{
			CourseNumber: 204,
			Name:         "Financial Markets",
			Type:         string(model.CourseTypeOE),
			Description:  "Equity, debt and derivatives markets with a trading simulation",
			Credits:      &credits,
			Department:   "Management",
		},
		{
			CourseNumber:   311,
			Name:           "Applied Machine Learning",
			Type:           string(model.CourseTypePE),
			Description:    "Supervised learning end to end, graded on a semester project",
			Credits:        &credits,
			Department:     "Computer Science",
			Prerequisites:  []string{"Linear Algebra", "Probability"},
			IsProjectBased: true,
		},
		{
			CourseNumber: 415,
			Name:         "Cloud Computing Fundamentals",
			Type:         string(model.CourseTypeMOOC),
			Description:  "Self paced online course with a proctored final",
			Department:   "Computer Science",
		},
	}
}
