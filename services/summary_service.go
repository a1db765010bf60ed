package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSummaryTimeout  = 30 * time.Second
	DefaultSummaryCacheTTL = 24 * time.Hour
	summaryReviewLimit     = 50
	summaryDependency      = "summarizer"
)

// Summarizer turns a course's review texts into a prose summary
type Summarizer interface {
	Summarize(ctx context.Context, courseName string, reviews []string) (string, error)
}

// SummaryCache stores generated summaries
type SummaryCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// SummaryKeyFunc builds the cache key of a course summary. revision is the
// course's last update time, which moves whenever its statistics are
// recomputed, including after an approved review is edited.
type SummaryKeyFunc func(courseID uint, approvedReviews int64, revision time.Time) string

// CourseSummary is a generated summary of a course's approved reviews
type CourseSummary struct {
	CourseID    uint      `json:"course_id"`
	CourseName  string    `json:"course_name"`
	Summary     string    `json:"summary"`
	ReviewCount int64     `json:"review_count"`
	GeneratedAt time.Time `json:"generated_at"`
	Cached      bool      `json:"cached"`
}

// SummaryService produces AI summaries. A summarizer failure is reported as
// a DependencyError and never touches review or course data.
type SummaryService struct {
	courses    CourseStore
	reviews    ReviewStore
	summarizer Summarizer
	cache      SummaryCache
	cacheKey   SummaryKeyFunc
	timeout    time.Duration
	ttl        time.Duration
	group      singleflight.Group
	log        *logger.Logger
}

// SummaryOption configures a SummaryService
type SummaryOption func(*SummaryService)

// WithSummaryCache caches summaries under keys built by key
func WithSummaryCache(cache SummaryCache, key SummaryKeyFunc, ttl time.Duration) SummaryOption {
	return func(s *SummaryService) {
		s.cache = cache
		s.cacheKey = key
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSummaryTimeout bounds each summarizer call
func WithSummaryTimeout(timeout time.Duration) SummaryOption {
	return func(s *SummaryService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewSummaryService creates a summary service. summarizer may be nil when no
// AI backend is configured; every request then fails with a DependencyError.
func NewSummaryService(courses CourseStore, reviews ReviewStore, summarizer Summarizer, log *logger.Logger, opts ...SummaryOption) *SummaryService {
	if log == nil {
		log = logger.NewNop()
	}
	s := &SummaryService{
		courses:    courses,
		reviews:    reviews,
		summarizer: summarizer,
		timeout:    DefaultSummaryTimeout,
		ttl:        DefaultSummaryCacheTTL,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize returns a summary of the latest approved reviews of a course.
// Concurrent requests for the same course and review count share one
// summarizer call.
func (s *SummaryService) Summarize(ctx context.Context, courseID uint) (summary *CourseSummary, err error) {
	ctx, span := tracer.Start(ctx, "SummaryService.Summarize")
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))
	defer func() { endSpan(span, err) }()

	course, err := s.courses.GetActiveByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	approved := true
	reviews, total, err := s.reviews.List(ctx, ReviewFilter{
		CourseID: courseID,
		Approved: &approved,
		SortBy:   ReviewSortNewest,
		Page:     1,
		Limit:    summaryReviewLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("load reviews for summary: %w", err)
	}
	if total == 0 || len(reviews) == 0 {
		return nil, NewValidationError("course_id", "course has no approved reviews to summarize")
	}

	key := fmt.Sprintf("%d:%d:%d", courseID, total, course.UpdatedAt.UnixNano())
	if s.cache != nil && s.cacheKey != nil {
		key = s.cacheKey(courseID, total, course.UpdatedAt)
		if cached, ok := s.fromCache(ctx, key); ok {
			return cached, nil
		}
	}

	if s.summarizer == nil {
		return nil, &DependencyError{Dependency: summaryDependency, Err: errors.New("no summarizer configured")}
	}

	texts := reviewTexts(reviews)
	// The call is shared by every waiter, so one caller going away must not
	// cancel it for the rest
	sharedCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(sharedCtx, s.timeout)
		defer cancel()

		started := time.Now()
		text, err := s.summarizer.Summarize(callCtx, course.Name, texts)
		if err != nil {
			return nil, &DependencyError{
				Dependency: summaryDependency,
				Timeout:    errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded),
				Err:        err,
			}
		}

		result := &CourseSummary{
			CourseID:    courseID,
			CourseName:  course.Name,
			Summary:     text,
			ReviewCount: total,
			GeneratedAt: time.Now().UTC(),
		}
		s.log.Info("Course summary generated",
			"course_id", courseID,
			"reviews", len(texts),
			"duration_ms", time.Since(started).Milliseconds(),
		)
		s.toCache(sharedCtx, key, result)
		return result, nil
	})
	if err != nil {
		s.log.Warn("Course summary failed", "course_id", courseID, "error", err)
		return nil, err
	}

	summary = v.(*CourseSummary)
	if shared {
		cp := *summary
		summary = &cp
	}
	return summary, nil
}

func (s *SummaryService) fromCache(ctx context.Context, key string) (*CourseSummary, bool) {
	var summary CourseSummary
	if err := s.cache.GetJSON(ctx, key, &summary); err != nil {
		s.log.Debug("Summary cache miss", "key", key, "error", err)
		return nil, false
	}
	summary.Cached = true
	return &summary, true
}

func (s *SummaryService) toCache(ctx context.Context, key string, summary *CourseSummary) {
	if s.cache == nil || s.cacheKey == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, summary, s.ttl); err != nil {
		s.log.Warn("Failed to cache course summary", "key", key, "error", err)
	}
}

func reviewTexts(reviews []model.Review) []string {
	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		text := r.Body.Content
		if r.Body.Title != "" {
			text = r.Body.Title + ": " + text
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}
