package services

import (
	"context"
	"strings"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCoursePageSize = 20
	DefaultReviewPageSize = 10
	MaxPageSize           = 100
	RecentReviewsLimit    = 10
	DefaultHighlightLimit = 10
)

// CourseQuery is the raw listing request as the client sent it
type CourseQuery struct {
	Search string
	Type   string
	Goal   string
	SortBy string
	Page   int
	Limit  int
}

// ReviewQuery is a review listing request
type ReviewQuery struct {
	CourseID uint
	SortBy   string
	Page     int
	Limit    int
}

// Page is one page of a listing
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// CourseDetail is a course with its most recent approved reviews
type CourseDetail struct {
	Course        *model.Course  `json:"course"`
	RecentReviews []model.Review `json:"recent_reviews"`
}

// CourseQueryService is the read side over persisted courses and reviews.
// It never recomputes statistics; it serves what the aggregator stored.
type CourseQueryService struct {
	courses CourseStore
	reviews ReviewStore
	users   UserStore
	log     *logger.Logger
}

// NewCourseQueryService creates a query service
func NewCourseQueryService(courses CourseStore, reviews ReviewStore, users UserStore, log *logger.Logger) *CourseQueryService {
	if log == nil {
		log = logger.NewNop()
	}
	return &CourseQueryService{courses: courses, reviews: reviews, users: users, log: log}
}

// ListCourses returns a page of active courses matching q
func (s *CourseQueryService) ListCourses(ctx context.Context, q CourseQuery) (*Page[model.Course], error) {
	filter, err := courseFilterFromQuery(q)
	if err != nil {
		return nil, err
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return newPage(courses, total, filter.Page, filter.Limit), nil
}

// GetCourse loads an active course and its latest approved reviews
func (s *CourseQueryService) GetCourse(ctx context.Context, id uint) (*CourseDetail, error) {
	var (
		course  *model.Course
		reviews []model.Review
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		course, err = s.courses.GetActiveByID(gctx, id)
		return err
	})
	g.Go(func() error {
		approved := true
		var err error
		reviews, _, err = s.reviews.List(gctx, ReviewFilter{
			CourseID: id,
			Approved: &approved,
			SortBy:   ReviewSortNewest,
			Page:     1,
			Limit:    RecentReviewsLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if reviews == nil {
		reviews = []model.Review{}
	}
	return &CourseDetail{Course: course, RecentReviews: reviews}, nil
}

// ListReviews returns a page of approved reviews, newest first unless the
// "helpful" order is asked for
func (s *CourseQueryService) ListReviews(ctx context.Context, q ReviewQuery) (*Page[model.Review], error) {
	sortBy := ReviewSortNewest
	switch strings.ToLower(strings.TrimSpace(q.SortBy)) {
	case "", string(ReviewSortNewest):
	case string(ReviewSortHelpful):
		sortBy = ReviewSortHelpful
	default:
		return nil, NewValidationError("sortBy", "sortBy must be one of newest, helpful")
	}

	if q.CourseID != 0 {
		if _, err := s.courses.GetActiveByID(ctx, q.CourseID); err != nil {
			return nil, err
		}
	}

	page, limit := normalizePage(q.Page, q.Limit, DefaultReviewPageSize)
	approved := true
	reviews, total, err := s.reviews.List(ctx, ReviewFilter{
		CourseID: q.CourseID,
		Approved: &approved,
		SortBy:   sortBy,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	return newPage(reviews, total, page, limit), nil
}

// UserReviews lists every review a user wrote, approved or not
func (s *CourseQueryService) UserReviews(ctx context.Context, userID uint, page, limit int) (*Page[model.Review], error) {
	page, limit = normalizePage(page, limit, DefaultReviewPageSize)
	reviews, total, err := s.reviews.List(ctx, ReviewFilter{
		UserID:     userID,
		SortBy:     ReviewSortNewest,
		Page:       page,
		Limit:      limit,
		WithCourse: true,
	})
	if err != nil {
		return nil, err
	}
	return newPage(reviews, total, page, limit), nil
}

// Popular lists popular courses by review volume
func (s *CourseQueryService) Popular(ctx context.Context, limit int) ([]model.Course, error) {
	_, limit = normalizePage(1, limit, DefaultHighlightLimit)
	courses, _, err := s.courses.List(ctx, CourseFilter{Goal: CourseGoalPopular, SortBy: CourseSortReviews, Page: 1, Limit: limit})
	return courses, err
}

// Traps lists trap courses, worst rated first
func (s *CourseQueryService) Traps(ctx context.Context, limit int) ([]model.Course, error) {
	_, limit = normalizePage(1, limit, DefaultHighlightLimit)
	courses, _, err := s.courses.List(ctx, CourseFilter{Goal: CourseGoalTrap, SortBy: CourseSortRatingAsc, Page: 1, Limit: limit})
	return courses, err
}

// RecordView logs that a signed-in user opened a course
func (s *CourseQueryService) RecordView(ctx context.Context, userID, courseID uint, meta ActivityContext) {
	if userID == 0 {
		return
	}
	err := s.users.RecordActivity(ctx, &model.UserActivity{
		UserID:       userID,
		ActivityType: model.ActivityTypeCourseView,
		ResourceType: "course",
		ResourceID:   courseID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	if err != nil {
		s.log.Warn("Failed to record course view", "user_id", userID, "course_id", courseID, "error", err)
	}
}

func courseFilterFromQuery(q CourseQuery) (CourseFilter, error) {
	filter := CourseFilter{Search: strings.TrimSpace(q.Search)}

	if t := strings.TrimSpace(q.Type); t != "" {
		if !model.IsValidCourseType(t) {
			return filter, NewValidationError("type", "type must be one of FEC, OE, PE, MOOC")
		}
		filter.Type = model.CourseType(t)
	}

	switch goal := CourseGoal(strings.TrimSpace(q.Goal)); goal {
	case CourseGoalNone, CourseGoalTrap, CourseGoalNoExam, CourseGoalPopular:
		filter.Goal = goal
	default:
		return filter, NewValidationError("goal", "goal must be one of trap, no_exam, popular")
	}

	switch sortBy := CourseSort(strings.TrimSpace(q.SortBy)); sortBy {
	case "":
		filter.SortBy = CourseSortRating
	case CourseSortRating, CourseSortChill, CourseSortReviews:
		filter.SortBy = sortBy
	default:
		return filter, NewValidationError("sortBy", "sortBy must be one of rating, chill, reviews")
	}

	filter.Page, filter.Limit = normalizePage(q.Page, q.Limit, DefaultCoursePageSize)
	return filter, nil
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func newPage[T any](items []T, total int64, page, limit int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
}
