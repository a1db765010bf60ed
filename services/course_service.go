package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/sahilchouksey/course-review-api/utils/validation"
	"gorm.io/datatypes"
)

// CourseInput is the admin payload for creating or replacing a course.
// Statistics and the review-derived flags are never taken from it.
type CourseInput struct {
	CourseNumber   int                  `json:"course_id" validate:"required,min=1"`
	Name           string               `json:"name" validate:"required,max=200"`
	Type           string               `json:"type" validate:"required,oneof=FEC OE PE MOOC"`
	Description    string               `json:"description" validate:"max=1000"`
	Credits        *int                 `json:"credits,omitempty" validate:"omitempty,min=0,max=10"`
	Department     string               `json:"department" validate:"max=255"`
	Prerequisites  []string             `json:"prerequisites,omitempty"`
	Syllabus       *model.Syllabus      `json:"syllabus,omitempty"`
	Teachers       []CourseTeacherInput `json:"teachers,omitempty" validate:"omitempty,dive"`
	Schedule       *model.Schedule      `json:"schedule,omitempty"`
	Tags           []string             `json:"tags,omitempty" validate:"omitempty,dive,max=50"`
	HasNoExam      bool                 `json:"has_no_exam"`
	IsProjectBased bool                 `json:"is_project_based"`
	IsNew          bool                 `json:"is_new"`
}

// CourseTeacherInput is one entry of a course's teacher list
type CourseTeacherInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Designation string  `json:"designation,omitempty"`
	Department  string  `json:"department,omitempty"`
	Email       string  `json:"email,omitempty" validate:"omitempty,email"`
	Rating      float64 `json:"rating" validate:"min=0,max=10"`
	ReviewCount int     `json:"review_count" validate:"min=0"`
}

// CourseService manages the course catalogue. Every save goes through the
// auto-tagger.
type CourseService struct {
	courses   CourseStore
	validator *validation.Validator
	log       *logger.Logger
}

// NewCourseService creates a course service
func NewCourseService(courses CourseStore, log *logger.Logger) *CourseService {
	if log == nil {
		log = logger.NewNop()
	}
	return &CourseService{
		courses:   courses,
		validator: validation.NewValidator(),
		log:       log,
	}
}

// Create adds a course with default statistics
func (s *CourseService) Create(ctx context.Context, in CourseInput) (*model.Course, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	course := model.NewCourseDefaults()
	applyCourseInput(&course, in)
	ApplyAutoTags(&course)

	if err := s.courses.Create(ctx, &course); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, &ConflictError{Resource: "course", Message: fmt.Sprintf("course id %d already exists", in.CourseNumber)}
		}
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.log.Info("Course created", "course_id", course.ID, "identifier", course.Identifier())
	return &course, nil
}

// Update replaces the descriptive fields of a course, keeping its statistics.
// The input is applied to the locked row so a concurrent recompute is kept.
func (s *CourseService) Update(ctx context.Context, id uint, in CourseInput) (*model.Course, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	course, err := s.courses.Modify(ctx, id, func(course *model.Course) error {
		applyCourseInput(course, in)
		ApplyAutoTags(course)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, &ConflictError{Resource: "course", Message: fmt.Sprintf("course id %d already exists", in.CourseNumber)}
		}
		if IsNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update course %d: %w", id, err)
	}
	return course, nil
}

// Upsert creates the course with in.CourseNumber or updates it if it exists
func (s *CourseService) Upsert(ctx context.Context, in CourseInput) (*model.Course, error) {
	existing, err := s.courses.GetByCourseNumber(ctx, in.CourseNumber)
	switch {
	case err == nil:
		return s.Update(ctx, existing.ID, in)
	case IsNotFoundError(err):
		return s.Create(ctx, in)
	default:
		return nil, err
	}
}

// Deactivate hides a course from every read query
func (s *CourseService) Deactivate(ctx context.Context, id uint) error {
	changed := false
	_, err := s.courses.Modify(ctx, id, func(course *model.Course) error {
		if course.IsActive {
			course.IsActive = false
			changed = true
		}
		ApplyAutoTags(course)
		return nil
	})
	if err != nil {
		if IsNotFoundError(err) {
			return err
		}
		return fmt.Errorf("deactivate course %d: %w", id, err)
	}
	if changed {
		s.log.Info("Course deactivated", "course_id", id)
	}
	return nil
}

func (s *CourseService) validate(in *CourseInput) error {
	in.Name = validation.SanitizeString(in.Name)
	in.Description = validation.SanitizeString(in.Description)
	in.Department = validation.SanitizeString(in.Department)
	in.Tags = validation.SanitizeList(in.Tags)
	in.Prerequisites = validation.SanitizeList(in.Prerequisites)

	if err := s.validator.ValidateStruct(in); err != nil {
		return structValidationError(err, "course")
	}
	return nil
}

func applyCourseInput(course *model.Course, in CourseInput) {
	course.CourseNumber = in.CourseNumber
	course.Name = in.Name
	course.Type = model.CourseType(in.Type)
	course.Description = in.Description
	course.Department = in.Department
	if in.Credits != nil {
		course.Credits = *in.Credits
	}
	if in.Prerequisites != nil {
		course.Prerequisites = datatypes.JSONSlice[string](in.Prerequisites)
	}
	if in.Syllabus != nil {
		course.Syllabus = datatypes.NewJSONType(*in.Syllabus)
	}
	if in.Schedule != nil {
		course.Schedule = datatypes.NewJSONType(*in.Schedule)
	}
	if in.Teachers != nil {
		teachers := make(datatypes.JSONSlice[model.Teacher], 0, len(in.Teachers))
		for _, t := range in.Teachers {
			teachers = append(teachers, model.Teacher{
				Name:        t.Name,
				Designation: t.Designation,
				Department:  t.Department,
				Email:       t.Email,
				Rating:      t.Rating,
				ReviewCount: t.ReviewCount,
			})
		}
		course.Teachers = teachers
	}
	if in.Tags != nil {
		course.Tags = datatypes.JSONSlice[string](in.Tags)
	}

	course.Flags.HasNoExam = in.HasNoExam
	course.Flags.IsProjectBased = in.IsProjectBased
	course.Flags.IsNew = in.IsNew
}
