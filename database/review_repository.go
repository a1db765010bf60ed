package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository implements services.ReviewStore on PostgreSQL
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a review repository
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

var _ services.ReviewStore = (*ReviewRepository)(nil)

// Create inserts a review. The (user_id, course_id) unique index rejects a
// second review of the same course, which surfaces as services.ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
	return translateError(err, "review", review.CourseID)
}

func (r *ReviewRepository) GetByID(ctx context.Context, id uint) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).First(&review, id).Error
	if err != nil {
		return nil, translateError(err, "review", id)
	}
	return &review, nil
}

// editableReviewColumns are the columns an owner edit may write
var editableReviewColumns = []string{
	"rating_overall", "rating_teaching", "rating_content", "rating_difficulty", "rating_workload",
	"review_title", "review_content", "review_pros", "review_cons", "review_tips",
	"study_study_hours_per_week", "study_study_time", "study_attendance_required", "study_exam_pattern",
	"would_recommend", "chill_score", "is_edited", "edit_history",
}

func (r *ReviewRepository) SaveEdit(ctx context.Context, review *model.Review) error {
	res := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("id = ?", review.ID).
		Select(editableReviewColumns).
		Updates(review)
	if res.Error != nil {
		return translateError(res.Error, "review", review.ID)
	}
	if res.RowsAffected == 0 {
		return &services.NotFoundError{Resource: "review", ID: review.ID}
	}
	return nil
}

// List returns one page of reviews with their authors' public profile
func (r *ReviewRepository) List(ctx context.Context, filter services.ReviewFilter) ([]model.Review, int64, error) {
	var (
		reviews []model.Review
		total   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.filtered(gctx, filter).Count(&total).Error
	})
	g.Go(func() error {
		q := r.filtered(gctx, filter).
			Preload("User", func(db *gorm.DB) *gorm.DB {
				return db.Select("id", "username", "profile_first_name", "profile_last_name", "profile_branch", "profile_year")
			})
		if filter.WithCourse {
			q = q.Preload("Course")
		}
		for _, order := range reviewOrder(filter.SortBy) {
			q = q.Order(order)
		}
		if filter.Limit > 0 {
			q = q.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
		}
		return q.Find(&reviews).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *ReviewRepository) filtered(ctx context.Context, filter services.ReviewFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Review{})
	if filter.CourseID != 0 {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Approved != nil {
		q = q.Where("is_approved = ?", *filter.Approved)
	}
	return q
}

func reviewOrder(sortBy services.ReviewSort) []string {
	switch sortBy {
	case services.ReviewSortHelpful:
		return []string{"helpful_votes DESC", "created_at DESC", "id DESC"}
	case services.ReviewSortOldest:
		return []string{"created_at ASC", "id ASC"}
	default:
		return []string{"created_at DESC", "id DESC"}
	}
}

// MarkApproved is a conditional update, so of two concurrent approvals of
// the same review exactly one reports the transition
func (r *ReviewRepository) MarkApproved(ctx context.Context, id uint, moderatorID uint, notes string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"is_approved":  true,
		"moderated_at": at,
	}
	if moderatorID != 0 {
		updates["moderated_by"] = moderatorID
	}
	if notes != "" {
		updates["moderation_notes"] = notes
	}

	res := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("id = ? AND is_approved = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ReviewRepository) SetFlags(ctx context.Context, id uint, reasons []model.FlagReason) error {
	res := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("id = ?", id).
		Update("flagged_reasons", datatypes.JSONSlice[model.FlagReason](reasons))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &services.NotFoundError{Resource: "review", ID: id}
	}
	return nil
}

func (r *ReviewRepository) Increment(ctx context.Context, id uint, counter services.ReviewCounter) error {
	switch counter {
	case services.CounterHelpful, services.CounterUnhelpful, services.CounterReports:
	default:
		return fmt.Errorf("unknown review counter %q", counter)
	}

	column := string(counter)
	res := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &services.NotFoundError{Resource: "review", ID: id}
	}
	return nil
}
