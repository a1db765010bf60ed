// Package importer loads the historical course review dataset. Courses are
// upserted by course number and every review is submitted through the
// regular review service, so imported reviews pass the same validation,
// moderation gate and statistics recompute as reviews sent to the API.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"gopkg.in/yaml.v3"
)

const (
	importEmailDomain = "import.course-review.local"
	importYear        = 2023
	recommendRating   = 7
	defaultContent    = "No specific review provided."
)

// Course is one course of the dataset with its reviews grouped by teacher
type Course struct {
	ID       int                `json:"id" yaml:"id"`
	Type     string             `json:"type" yaml:"type"`
	Name     string             `json:"name" yaml:"name"`
	Teachers map[string]Teacher `json:"teachers" yaml:"teachers"`
}

// Teacher holds the reviews collected for one teacher of a course
type Teacher struct {
	AvgRating float64  `json:"avg_rating" yaml:"avg_rating"`
	Reviews   []Review `json:"reviews" yaml:"reviews"`
}

// Review is a single survey answer
type Review struct {
	Rating    *int   `json:"rating" yaml:"rating"`
	Review    string `json:"review" yaml:"review"`
	StudyTime string `json:"study_time" yaml:"study_time"`
}

// Parse decodes a dataset. Files ending in .yaml or .yml are read as YAML,
// everything else as JSON.
func Parse(name string, data []byte) ([]Course, error) {
	var courses []Course
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &courses); err != nil {
			return nil, fmt.Errorf("parse yaml dataset: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &courses); err != nil {
			return nil, fmt.Errorf("parse json dataset: %w", err)
		}
	}
	return courses, nil
}

// Report summarizes an import run
type Report struct {
	Courses          int      `json:"courses"`
	ReviewsCreated   int      `json:"reviews_created"`
	ReviewsSkipped   int      `json:"reviews_skipped"`
	ReviewsRejected  int      `json:"reviews_rejected"`
	StaleCourses     []string `json:"stale_courses,omitempty"`
	RejectedMessages []string `json:"rejected_messages,omitempty"`
}

// Importer writes a dataset through the domain services
type Importer struct {
	courses  *services.CourseService
	reviews  *services.ReviewService
	accounts *services.AccountService
	log      *logger.Logger
}

// New creates an importer
func New(courses *services.CourseService, reviews *services.ReviewService, accounts *services.AccountService, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Importer{courses: courses, reviews: reviews, accounts: accounts, log: log}
}

// Run imports every course of the dataset. A course that fails validation
// aborts the run; a review that fails is counted and skipped.
func (im *Importer) Run(ctx context.Context, dataset []Course) (*Report, error) {
	report := &Report{}

	for _, dc := range dataset {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		teacherNames := sortedTeachers(dc.Teachers)
		course, err := im.courses.Upsert(ctx, courseInput(dc, teacherNames))
		if err != nil {
			return report, fmt.Errorf("course %d: %w", dc.ID, err)
		}
		report.Courses++

		stale := false
		for ti, teacher := range teacherNames {
			for ri, r := range dc.Teachers[teacher].Reviews {
				if r.Rating == nil {
					report.ReviewsSkipped++
					continue
				}

				user, err := im.importUser(ctx, fmt.Sprintf("student_c%dt%dr%d", dc.ID, ti, ri))
				if err != nil {
					return report, err
				}

				_, err = im.reviews.Create(ctx, user.ID, reviewInput(course, teacher, r), services.ActivityContext{UserAgent: "course-review-import"})
				var conflict *services.ConflictError
				var invalid *services.ValidationError
				switch {
				case err == nil:
					report.ReviewsCreated++
				case errors.Is(err, services.ErrStatisticsStale):
					report.ReviewsCreated++
					stale = true
				case errors.As(err, &conflict):
					report.ReviewsSkipped++
				case errors.As(err, &invalid):
					report.ReviewsRejected++
					report.RejectedMessages = append(report.RejectedMessages,
						fmt.Sprintf("%s teacher %q review %d: %s", course.Identifier(), teacher, ri, invalid.Error()))
				default:
					return report, fmt.Errorf("course %d review %d: %w", dc.ID, ri, err)
				}
			}
		}
		if stale {
			report.StaleCourses = append(report.StaleCourses, course.Identifier())
		}

		im.log.Info("Imported course", "identifier", course.Identifier(), "name", course.Name)
	}
	return report, nil
}

// importUser returns the verified account that owns one imported review,
// creating it on first use so reruns reuse the same users
func (im *Importer) importUser(ctx context.Context, username string) (*model.User, error) {
	email := username + "@" + importEmailDomain
	user, err := im.accounts.Provision(ctx, services.RegisterInput{
		Username: username,
		Email:    email,
		Password: uuid.NewString(),
		Profile:  services.ProfileInput{FirstName: "Anonymous", LastName: "Student", Branch: "Various"},
	}, model.RoleStudent, true)
	if err == nil {
		return user, nil
	}

	var conflict *services.ConflictError
	if !errors.As(err, &conflict) {
		return nil, fmt.Errorf("import user %s: %w", username, err)
	}
	existing, err := im.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("import user %s: %w", username, err)
	}
	return existing, nil
}

func sortedTeachers(teachers map[string]Teacher) []string {
	names := make([]string, 0, len(teachers))
	for name := range teachers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func courseInput(dc Course, teacherNames []string) services.CourseInput {
	courseType := strings.ToUpper(strings.TrimSpace(dc.Type))
	if courseType == "" {
		courseType = string(model.CourseTypeFEC)
	}

	lower := strings.ToLower(dc.Name)
	in := services.CourseInput{
		CourseNumber: dc.ID,
		Name:         truncate(strings.TrimSpace(dc.Name), 200),
		Type:         courseType,
		HasNoExam:    strings.Contains(lower, "sports") || strings.Contains(lower, "public speaking"),
	}
	for _, name := range teacherNames {
		t := dc.Teachers[name]
		in.Teachers = append(in.Teachers, services.CourseTeacherInput{
			Name:        truncate(name, 255),
			Rating:      clampFloat(t.AvgRating, 0, 10),
			ReviewCount: len(t.Reviews),
		})
	}
	return in
}

func reviewInput(course *model.Course, teacher string, r Review) services.ReviewInput {
	rating := clamp(*r.Rating, 1, 10)
	difficulty := clamp(11-rating, 1, 10)
	recommend := rating >= recommendRating

	content := strings.TrimSpace(r.Review)
	if content == "" {
		content = defaultContent
	}
	studyTime := strings.ToLower(r.StudyTime)

	in := services.ReviewInput{
		CourseID: course.ID,
		Teacher:  services.TeacherInput{Name: truncate(teacher, 255)},
		Rating: services.RatingInput{
			Overall:    rating,
			Teaching:   &rating,
			Content:    &rating,
			Difficulty: &difficulty,
		},
		Review: services.BodyInput{
			Title:   truncate("Review for "+course.Name, 100),
			Content: truncate(content, 2000),
		},
		StudyInfo: services.StudyInfoInput{
			StudyTime: truncate(strings.TrimSpace(r.StudyTime), 500),
		},
		Semester:       services.SemesterInput{Year: importYear, Term: string(model.TermOdd)},
		WouldRecommend: &recommend,
		IsAnonymous:    true,
	}
	if strings.Contains(studyTime, "attendance") {
		in.StudyInfo.AttendanceRequired = string(model.AttendanceMandatory)
	}
	if strings.Contains(studyTime, "no exam") {
		in.StudyInfo.ExamPattern = string(model.ExamNoExam)
	}
	return in
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
