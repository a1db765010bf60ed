package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent   = "student"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User represents a registered student, moderator or admin
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Username        string         `gorm:"type:varchar(30);uniqueIndex;not null" json:"username"`
	Email           string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Role            string         `gorm:"type:varchar(20);default:'student'" json:"role"`
	IsEmailVerified bool           `gorm:"default:false" json:"is_email_verified"`
	TokenVersion    int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	Profile     UserProfile      `gorm:"embedded;embeddedPrefix:profile_" json:"profile"`
	Preferences UserPreferences  `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	Activity    ActivityCounters `gorm:"embedded;embeddedPrefix:activity_" json:"activity"`

	// Relationships
	Reviews        []Review            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// UserProfile is the editable part of a user
type UserProfile struct {
	FirstName  string `gorm:"type:varchar(100)" json:"first_name,omitempty"`
	LastName   string `gorm:"type:varchar(100)" json:"last_name,omitempty"`
	Branch     string `gorm:"type:varchar(100)" json:"branch,omitempty"`
	Year       int    `json:"year,omitempty"`
	RollNumber string `gorm:"type:varchar(50);index" json:"roll_number,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// UserPreferences captures what a student is looking for in an elective
type UserPreferences struct {
	StudyStyle string `gorm:"type:varchar(20);default:'moderate'" json:"study_style"` // intensive, moderate, light
	GoalType   string `gorm:"type:varchar(20);default:'high_grades'" json:"goal_type"` // high_grades, easy_pass, skill_building, interest
}

// ActivityCounters holds counters the moderation gate reads
type ActivityCounters struct {
	ReviewsSubmitted int        `gorm:"default:0" json:"reviews_submitted"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.Profile.LastName == "" {
		return u.Profile.FirstName
	}
	if u.Profile.FirstName == "" {
		return u.Profile.LastName
	}
	return u.Profile.FirstName + " " + u.Profile.LastName
}

// CanModerate reports whether the user may approve or flag reviews
func (u *User) CanModerate() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
