package model

import (
	"time"
)

// ActivityType represents the type of user activity
type ActivityType string

const (
	ActivityTypeLogin        ActivityType = "login"
	ActivityTypeLogout       ActivityType = "logout"
	ActivityTypeCourseView   ActivityType = "course_view"
	ActivityTypeReviewSubmit ActivityType = "review_submit"
	ActivityTypeReviewVote   ActivityType = "review_vote"
)

// UserActivity is an append-only log of what a user did, used for the
// recently viewed courses list and cleaned up by the cron manager
type UserActivity struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;index:idx_user_activity" json:"user_id"`
	ActivityType ActivityType `gorm:"type:varchar(50);not null;index:idx_activity_type" json:"activity_type"`
	ResourceType string       `gorm:"type:varchar(50)" json:"resource_type"` // "course" or "review"
	ResourceID   uint         `json:"resource_id"`
	IPAddress    string       `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent    string       `gorm:"type:text" json:"user_agent"`
	CreatedAt    time.Time    `gorm:"index:idx_created_at" json:"created_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for UserActivity
func (UserActivity) TableName() string {
	return "user_activities"
}
