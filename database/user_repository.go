package database

import (
	"context"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository implements services.UserStore on PostgreSQL
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ services.UserStore = (*UserRepository)(nil)

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translateError(err, "user", id)
	}
	return &user, nil
}

func (r *UserRepository) IncrementReviewsSubmitted(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("activity_reviews_submitted", gorm.Expr("activity_reviews_submitted + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &services.NotFoundError{Resource: "user", ID: id}
	}
	return nil
}

func (r *UserRepository) RecordActivity(ctx context.Context, activity *model.UserActivity) error {
	return r.db.WithContext(ctx).Omit("User").Create(activity).Error
}

var _ services.AccountStore = (*UserRepository)(nil)

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translateError(err, "user", email)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err, "user", user.Email)
	}
	return nil
}

func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error; err != nil {
		return translateError(err, "user", user.ID)
	}
	return nil
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, id uint, verified bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("is_email_verified", verified)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &services.NotFoundError{Resource: "user", ID: id}
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("activity_last_login", at).
		Error
}
