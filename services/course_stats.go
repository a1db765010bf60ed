package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	trapMaxAvgTenths   = 40 // avgRating < 4.0
	trapMinReviews     = 3
	popularMinAvgTenth = 70 // avgRating >= 7.0
	popularMinReviews  = 10

	defaultRecomputeAttempts = 3
	defaultRecomputeBackoff  = 50 * time.Millisecond
)

// ApplyStatistics writes the statistics and flags implied by agg into course.
//
// With no approved reviews only totalReviews and avgRating are reset and
// everything else keeps its previous value. Averages are rounded half-up in
// integer arithmetic so equal inputs always give equal outputs.
func ApplyStatistics(course *model.Course, agg ReviewAggregate) {
	n := agg.TotalReviews
	course.Statistics.TotalReviews = int(n)
	if n <= 0 {
		course.Statistics.TotalReviews = 0
		course.Statistics.AvgRating = 0
		return
	}

	avgTenths := roundHalfUpDiv(10*agg.SumOverall, n)
	course.Statistics.AvgRating = float64(avgTenths) / 10
	course.Statistics.RecommendationPercentage = int(roundHalfUpDiv(100*agg.RecommendCount, n))

	course.Flags.IsTrapCourse = avgTenths < trapMaxAvgTenths && n >= trapMinReviews
	course.Flags.IsPopular = n >= popularMinReviews && avgTenths >= popularMinAvgTenth

	if agg.AvgChillScore != nil {
		course.Statistics.ChillScore = roundTenth(*agg.AvgChillScore)
	}
	if agg.AvgStudyHours != nil {
		course.Statistics.AverageStudyHours = roundTenth(*agg.AvgStudyHours)
	}
}

// roundHalfUpDiv returns num/den rounded half-up, for non-negative num and positive den
func roundHalfUpDiv(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}

func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// CourseReviewStats is the read-side aggregate of a course's approved
// reviews. HasData is false, and every mean nil, when nothing is approved yet.
type CourseReviewStats struct {
	CourseID                 uint     `json:"course_id"`
	TotalReviews             int64    `json:"total_reviews"`
	HasData                  bool     `json:"has_data"`
	AvgRating                *float64 `json:"avg_rating"`
	AvgTeaching              *float64 `json:"avg_teaching"`
	AvgContent               *float64 `json:"avg_content"`
	AvgDifficulty            *float64 `json:"avg_difficulty"`
	AvgWorkload              *float64 `json:"avg_workload"`
	AvgStudyHours            *float64 `json:"avg_study_hours"`
	RecommendationPercentage *int     `json:"recommendation_percentage"`
}

// CourseStatsService keeps course statistics in step with approved reviews
type CourseStatsService struct {
	courses  CourseStore
	log      *logger.Logger
	attempts int
	backoff  time.Duration
}

// NewCourseStatsService creates a stats service that retries a failed
// recompute up to three times
func NewCourseStatsService(courses CourseStore, log *logger.Logger) *CourseStatsService {
	if log == nil {
		log = logger.NewNop()
	}
	return &CourseStatsService{
		courses:  courses,
		log:      log,
		attempts: defaultRecomputeAttempts,
		backoff:  defaultRecomputeBackoff,
	}
}

// WithRetry overrides the attempt count and the base backoff between attempts
func (s *CourseStatsService) WithRetry(attempts int, backoff time.Duration) *CourseStatsService {
	if attempts < 1 {
		attempts = 1
	}
	s.attempts = attempts
	s.backoff = backoff
	return s
}

// Recompute rebuilds a course's statistics, flags and tags from the full set
// of its approved reviews and saves them in one write. The store holds a row
// lock on the course for the read-modify-write, so concurrent recomputes of
// the same course serialize.
func (s *CourseStatsService) Recompute(ctx context.Context, courseID uint) (course *model.Course, err error) {
	ctx, span := tracer.Start(ctx, "CourseStatsService.Recompute")
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))
	defer func() { endSpan(span, err) }()

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		course, err = s.courses.UpdateStatistics(ctx, courseID, func(c *model.Course, agg ReviewAggregate) {
			ApplyStatistics(c, agg)
			ApplyAutoTags(c)
		})
		if err == nil {
			s.log.Debug("Course statistics recomputed",
				"course_id", courseID,
				"total_reviews", course.Statistics.TotalReviews,
				"avg_rating", course.Statistics.AvgRating,
			)
			return course, nil
		}
		if IsNotFoundError(err) {
			return nil, err
		}

		lastErr = err
		s.log.Warn("Course statistics recompute failed",
			"course_id", courseID,
			"attempt", attempt,
			"error", err,
		)
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))

		if attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: course %d: %v", ErrStatisticsStale, courseID, ctx.Err())
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}

	s.log.Error("Course statistics left stale", "course_id", courseID, "error", lastErr)
	return nil, fmt.Errorf("%w: course %d: %v", ErrStatisticsStale, courseID, lastErr)
}

// CourseAggregate returns per-dimension means over the approved reviews of an
// active course
func (s *CourseStatsService) CourseAggregate(ctx context.Context, courseID uint) (*CourseReviewStats, error) {
	if _, err := s.courses.GetActiveByID(ctx, courseID); err != nil {
		return nil, err
	}

	agg, err := s.courses.ReviewAggregate(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("aggregate reviews for course %d: %w", courseID, err)
	}

	stats := &CourseReviewStats{CourseID: courseID, TotalReviews: agg.TotalReviews}
	if agg.TotalReviews <= 0 {
		return stats, nil
	}

	avg := float64(roundHalfUpDiv(10*agg.SumOverall, agg.TotalReviews)) / 10
	rec := int(roundHalfUpDiv(100*agg.RecommendCount, agg.TotalReviews))

	stats.HasData = true
	stats.AvgRating = &avg
	stats.RecommendationPercentage = &rec
	stats.AvgTeaching = roundedPtr(agg.AvgTeaching)
	stats.AvgContent = roundedPtr(agg.AvgContent)
	stats.AvgDifficulty = roundedPtr(agg.AvgDifficulty)
	stats.AvgWorkload = roundedPtr(agg.AvgWorkload)
	stats.AvgStudyHours = roundedPtr(agg.AvgStudyHours)
	return stats, nil
}

func roundedPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := roundTenth(*v)
	return &r
}
