package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"gorm.io/datatypes"
)

// ReviewEditInput carries the parts of a review its owner may change.
// Nil sections are left as they are.
type ReviewEditInput struct {
	Rating         *RatingInput    `json:"rating,omitempty"`
	Review         *BodyInput      `json:"review,omitempty"`
	StudyInfo      *StudyInfoInput `json:"study_info,omitempty"`
	WouldRecommend *bool           `json:"would_recommend,omitempty"`
}

// ActivityContext is request metadata recorded in the activity log
type ActivityContext struct {
	IPAddress string
	UserAgent string
}

// ReviewService orchestrates review submission, moderation and engagement.
// Every approval transition it performs is followed by a statistics
// recompute of the owning course.
type ReviewService struct {
	reviews ReviewStore
	courses CourseStore
	users   UserStore
	factory *ReviewFactory
	gate    *ModerationGate
	stats   *CourseStatsService
	log     *logger.Logger
	now     func() time.Time
}

// NewReviewService creates a review service
func NewReviewService(reviews ReviewStore, courses CourseStore, users UserStore, stats *CourseStatsService, log *logger.Logger) *ReviewService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReviewService{
		reviews: reviews,
		courses: courses,
		users:   users,
		factory: NewReviewFactory(),
		gate:    NewModerationGate(),
		stats:   stats,
		log:     log,
		now:     time.Now,
	}
}

// Create validates and stores a new review for userID. The moderation gate
// runs once, against the user's counters as they were before this review.
//
// If the review was stored but the course statistics could not be brought up
// to date, the stored review is returned together with an error wrapping
// ErrStatisticsStale.
func (s *ReviewService) Create(ctx context.Context, userID uint, in ReviewInput, meta ActivityContext) (*model.Review, error) {
	review, err := s.factory.NewReview(userID, in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.courses.GetActiveByID(ctx, review.CourseID); err != nil {
		return nil, err
	}

	review.IsApproved = s.gate.Decide(user)

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, &ConflictError{Resource: "review", Message: "you have already reviewed this course"}
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.users.IncrementReviewsSubmitted(ctx, userID); err != nil {
		s.log.Error("Failed to increment reviews submitted", "user_id", userID, "error", err)
	}
	s.recordActivity(ctx, userID, model.ActivityTypeReviewSubmit, review.ID, meta)

	s.log.Info("Review submitted",
		"review_id", review.ID,
		"course_id", review.CourseID,
		"auto_approved", review.IsApproved,
	)

	if review.IsApproved {
		if _, err := s.stats.Recompute(ctx, review.CourseID); err != nil {
			return review, err
		}
	}
	return review, nil
}

// Approve marks a pending review approved on behalf of a moderator and
// recomputes the course. Approving an already approved review changes
// nothing and does not recompute.
func (s *ReviewService) Approve(ctx context.Context, moderatorID, reviewID uint, notes string) (*model.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	transitioned, err := s.reviews.MarkApproved(ctx, reviewID, moderatorID, strings.TrimSpace(notes), s.now())
	if err != nil {
		return nil, fmt.Errorf("approve review %d: %w", reviewID, err)
	}
	if !transitioned {
		return review, nil
	}

	s.log.Info("Review approved", "review_id", reviewID, "moderator_id", moderatorID)

	approved, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if _, err := s.stats.Recompute(ctx, approved.CourseID); err != nil {
		return approved, err
	}
	return approved, nil
}

// Flag adds moderator flag reasons to a review. Flagging does not change the
// approval state.
func (s *ReviewService) Flag(ctx context.Context, moderatorID, reviewID uint, reasons []string) (*model.Review, error) {
	if len(reasons) == 0 {
		return nil, NewValidationError("reasons", "at least one reason is required")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	merged := append([]model.FlagReason{}, review.FlaggedReasons...)
	seen := make(map[model.FlagReason]bool, len(merged))
	for _, r := range merged {
		seen[r] = true
	}
	for _, r := range reasons {
		r = strings.TrimSpace(r)
		if !oneOf(r, model.FlagReasons) {
			return nil, NewValidationError("reasons", "unknown flag reason %q", r)
		}
		if !seen[model.FlagReason(r)] {
			seen[model.FlagReason(r)] = true
			merged = append(merged, model.FlagReason(r))
		}
	}

	if err := s.reviews.SetFlags(ctx, reviewID, merged); err != nil {
		return nil, fmt.Errorf("flag review %d: %w", reviewID, err)
	}
	review.FlaggedReasons = datatypes.JSONSlice[model.FlagReason](merged)

	s.log.Info("Review flagged", "review_id", reviewID, "moderator_id", moderatorID, "reasons", merged)
	return review, nil
}

// Vote records a helpful or unhelpful vote
func (s *ReviewService) Vote(ctx context.Context, userID, reviewID uint, helpful bool, meta ActivityContext) error {
	counter := CounterUnhelpful
	if helpful {
		counter = CounterHelpful
	}
	if err := s.reviews.Increment(ctx, reviewID, counter); err != nil {
		return err
	}
	s.recordActivity(ctx, userID, model.ActivityTypeReviewVote, reviewID, meta)
	return nil
}

// Report counts a report against a review
func (s *ReviewService) Report(ctx context.Context, reviewID uint) error {
	return s.reviews.Increment(ctx, reviewID, CounterReports)
}

// Edit applies the owner's changes to a review and records them in the edit
// history. An approved review stays approved and its course is recomputed.
func (s *ReviewService) Edit(ctx context.Context, userID, reviewID uint, in ReviewEditInput) (*model.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, fmt.Errorf("edit review %d: %w", reviewID, ErrForbidden)
	}

	changes, err := s.factory.ApplyEdit(review, in)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return review, nil
	}

	review.IsEdited = true
	review.EditHistory = append(review.EditHistory, model.EditEntry{
		EditedAt: s.now(),
		Changes:  strings.Join(changes, ", "),
	})

	if err := s.reviews.SaveEdit(ctx, review); err != nil {
		return nil, fmt.Errorf("update review %d: %w", reviewID, err)
	}

	// A moderator may have approved or voted since the first read
	review, err = s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("reload review %d: %w", reviewID, err)
	}
	if review.IsApproved {
		if _, err := s.stats.Recompute(ctx, review.CourseID); err != nil {
			return review, err
		}
	}
	return review, nil
}

// Pending lists reviews awaiting moderation, oldest first
func (s *ReviewService) Pending(ctx context.Context, page, limit int) ([]model.Review, int64, error) {
	approved := false
	return s.reviews.List(ctx, ReviewFilter{
		Approved: &approved,
		SortBy:   ReviewSortOldest,
		Page:     page,
		Limit:    limit,
	})
}

func (s *ReviewService) recordActivity(ctx context.Context, userID uint, kind model.ActivityType, reviewID uint, meta ActivityContext) {
	activity := &model.UserActivity{
		UserID:       userID,
		ActivityType: kind,
		ResourceType: "review",
		ResourceID:   reviewID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if err := s.users.RecordActivity(ctx, activity); err != nil {
		s.log.Warn("Failed to record activity", "user_id", userID, "activity", kind, "error", err)
	}
}
