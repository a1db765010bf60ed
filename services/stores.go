package services

import (
	"context"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
)

// ReviewAggregate is what the store computes over the approved reviews of one
// course. Sums and counts are exact integers so rounding is done here, not in
// SQL. Means over optional fields are nil when no review supplied the field.
type ReviewAggregate struct {
	TotalReviews   int64
	SumOverall     int64
	RecommendCount int64

	AvgTeaching   *float64
	AvgContent    *float64
	AvgDifficulty *float64
	AvgWorkload   *float64
	AvgStudyHours *float64
	AvgChillScore *float64
}

// CourseSort is the ordering of a course listing
type CourseSort string

const (
	CourseSortRating    CourseSort = "rating"
	CourseSortChill     CourseSort = "chill"
	CourseSortReviews   CourseSort = "reviews"
	CourseSortRatingAsc CourseSort = "rating_asc"
)

// CourseGoal is a derived-flag filter on course listings
type CourseGoal string

const (
	CourseGoalNone    CourseGoal = ""
	CourseGoalTrap    CourseGoal = "trap"
	CourseGoalNoExam  CourseGoal = "no_exam"
	CourseGoalPopular CourseGoal = "popular"
)

// CourseFilter selects active courses for a listing
type CourseFilter struct {
	Search string
	Type   model.CourseType
	Goal   CourseGoal
	SortBy CourseSort
	Page   int
	Limit  int
}

// ReviewSort is the ordering of a review listing
type ReviewSort string

const (
	ReviewSortNewest  ReviewSort = "newest"
	ReviewSortHelpful ReviewSort = "helpful"
	ReviewSortOldest  ReviewSort = "oldest"
)

// ReviewFilter selects reviews for a listing
type ReviewFilter struct {
	CourseID uint
	UserID   uint
	Approved *bool
	SortBy   ReviewSort
	Page     int
	Limit    int

	// WithCourse loads the reviewed course alongside each review
	WithCourse bool
}

// ReviewCounter is an engagement counter on a review
type ReviewCounter string

const (
	CounterHelpful   ReviewCounter = "helpful_votes"
	CounterUnhelpful ReviewCounter = "unhelpful_votes"
	CounterReports   ReviewCounter = "reports"
)

// StatisticsUpdate mutates a locked course from the aggregate of its
// approved reviews
type StatisticsUpdate func(course *model.Course, agg ReviewAggregate)

// CourseUpdate mutates a locked course. Returning an error aborts the write.
type CourseUpdate func(course *model.Course) error

// CourseStore persists courses
type CourseStore interface {
	GetByID(ctx context.Context, id uint) (*model.Course, error)
	GetActiveByID(ctx context.Context, id uint) (*model.Course, error)
	GetByCourseNumber(ctx context.Context, courseNumber int) (*model.Course, error)
	Create(ctx context.Context, course *model.Course) error
	List(ctx context.Context, filter CourseFilter) ([]model.Course, int64, error)

	// Modify locks the course, applies fn to the current row and writes it
	// back in one transaction, so it serializes with UpdateStatistics
	Modify(ctx context.Context, courseID uint, fn CourseUpdate) (*model.Course, error)

	// ReviewAggregate computes the aggregate over approved reviews of a course
	ReviewAggregate(ctx context.Context, courseID uint) (ReviewAggregate, error)

	// UpdateStatistics locks the course, aggregates its approved reviews,
	// applies fn and writes the course back in one transaction
	UpdateStatistics(ctx context.Context, courseID uint, fn StatisticsUpdate) (*model.Course, error)
}

// ReviewStore persists reviews
type ReviewStore interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id uint) (*model.Review, error)
	// SaveEdit writes the owner-editable content of a review plus its edit
	// history. Moderation and engagement columns are left alone.
	SaveEdit(ctx context.Context, review *model.Review) error
	List(ctx context.Context, filter ReviewFilter) ([]model.Review, int64, error)

	// MarkApproved flips is_approved from false to true and reports whether
	// this call made the transition
	MarkApproved(ctx context.Context, id uint, moderatorID uint, notes string, at time.Time) (bool, error)

	SetFlags(ctx context.Context, id uint, reasons []model.FlagReason) error
	Increment(ctx context.Context, id uint, counter ReviewCounter) error
}

// UserStore reads and updates the user fields the review flow depends on
type UserStore interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	IncrementReviewsSubmitted(ctx context.Context, id uint) error
	RecordActivity(ctx context.Context, activity *model.UserActivity) error
}
