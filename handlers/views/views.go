// Package views shapes models for JSON responses
package views

import (
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
)

// CourseView is a course plus its TYPE-courseId identifier
type CourseView struct {
	model.Course
	Identifier string `json:"identifier"`
}

func NewCourseView(c *model.Course) CourseView {
	return CourseView{Course: *c, Identifier: c.Identifier()}
}

func NewCourseViews(courses []model.Course) []CourseView {
	out := make([]CourseView, 0, len(courses))
	for i := range courses {
		out = append(out, NewCourseView(&courses[i]))
	}
	return out
}

// ReviewAuthor is the public part of a review's author
type ReviewAuthor struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Year      int    `json:"year,omitempty"`
}

// ReviewView is a review as other users see it. The author is left out of
// anonymous reviews and emails never appear.
type ReviewView struct {
	model.Review
	UserID *uint         `json:"user_id,omitempty"`
	User   *ReviewAuthor `json:"user,omitempty"`
	Course *CourseView   `json:"course,omitempty"`
}

// NewReviewView builds the public view. viewerID sees their own anonymous
// reviews with the author attached.
func NewReviewView(r *model.Review, viewerID uint) ReviewView {
	v := ReviewView{Review: *r}
	v.Review.User = nil
	v.Review.Course = nil
	v.Review.ModerationNotes = ""

	if !r.IsAnonymous || (viewerID != 0 && viewerID == r.UserID) {
		id := r.UserID
		v.UserID = &id
		if r.User != nil {
			v.User = &ReviewAuthor{
				ID:        r.User.ID,
				Username:  r.User.Username,
				FirstName: r.User.Profile.FirstName,
				Branch:    r.User.Profile.Branch,
				Year:      r.User.Profile.Year,
			}
		}
	}
	if r.Course != nil {
		cv := NewCourseView(r.Course)
		v.Course = &cv
	}
	return v
}

func NewReviewViews(reviews []model.Review, viewerID uint) []ReviewView {
	out := make([]ReviewView, 0, len(reviews))
	for i := range reviews {
		out = append(out, NewReviewView(&reviews[i], viewerID))
	}
	return out
}

// ModerationView is a review as a moderator sees it
type ModerationView struct {
	model.Review
	Course *CourseView `json:"course,omitempty"`
}

func NewModerationViews(reviews []model.Review) []ModerationView {
	out := make([]ModerationView, 0, len(reviews))
	for i := range reviews {
		v := ModerationView{Review: reviews[i]}
		if v.Review.User != nil {
			u := *v.Review.User
			u.Email = ""
			v.Review.User = &u
		}
		if reviews[i].Course != nil {
			cv := NewCourseView(reviews[i].Course)
			v.Course = &cv
		}
		v.Review.Course = nil
		out = append(out, v)
	}
	return out
}

// UserView is the signed-in user's own account
type UserView struct {
	ID              uint                   `json:"id"`
	Username        string                 `json:"username"`
	Email           string                 `json:"email"`
	Role            string                 `json:"role"`
	IsEmailVerified bool                   `json:"is_email_verified"`
	Profile         model.UserProfile      `json:"profile"`
	Preferences     model.UserPreferences  `json:"preferences"`
	Activity        model.ActivityCounters `json:"activity"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func NewUserView(u *model.User) UserView {
	return UserView{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		Profile:         u.Profile,
		Preferences:     u.Preferences,
		Activity:        u.Activity,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// CourseDetailView is a course with its recent approved reviews
type CourseDetailView struct {
	Course        CourseView   `json:"course"`
	RecentReviews []ReviewView `json:"recent_reviews"`
}

func NewCourseDetailView(d *services.CourseDetail, viewerID uint) CourseDetailView {
	return CourseDetailView{
		Course:        NewCourseView(d.Course),
		RecentReviews: NewReviewViews(d.RecentReviews, viewerID),
	}
}
