package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Term is the academic term a review was written for
type Term string

const (
	TermOdd    Term = "Odd"
	TermEven   Term = "Even"
	TermSummer Term = "Summer"
)

// AttendanceRequirement describes how strictly attendance is enforced
type AttendanceRequirement string

const (
	AttendanceMandatory AttendanceRequirement = "Mandatory"
	AttendanceOptional  AttendanceRequirement = "Optional"
	AttendancePartial   AttendanceRequirement = "Partially Required"
	AttendanceUnknown   AttendanceRequirement = "Unknown"
)

// ExamPattern describes how a course is evaluated
type ExamPattern string

const (
	ExamWritten        ExamPattern = "Written Exam"
	ExamAssignmentOnly ExamPattern = "Assignment Only"
	ExamProjectBased   ExamPattern = "Project Based"
	ExamPresentation   ExamPattern = "Presentation"
	ExamViva           ExamPattern = "Viva"
	ExamMixed          ExamPattern = "Mixed"
	ExamNoExam         ExamPattern = "No Exam"
)

// FlagReason is a moderator-assigned reason for flagging a review
type FlagReason string

const (
	FlagSpam           FlagReason = "Spam"
	FlagInappropriate  FlagReason = "Inappropriate Language"
	FlagFalseInfo      FlagReason = "False Information"
	FlagPersonalAttack FlagReason = "Personal Attack"
	FlagIrrelevant     FlagReason = "Irrelevant"
)

var (
	Terms        = []Term{TermOdd, TermEven, TermSummer}
	Attendances  = []AttendanceRequirement{AttendanceMandatory, AttendanceOptional, AttendancePartial, AttendanceUnknown}
	ExamPatterns = []ExamPattern{ExamWritten, ExamAssignmentOnly, ExamProjectBased, ExamPresentation, ExamViva, ExamMixed, ExamNoExam}
	FlagReasons  = []FlagReason{FlagSpam, FlagInappropriate, FlagFalseInfo, FlagPersonalAttack, FlagIrrelevant}
)

// Review is a single student's review of a course. A user can review a
// course at most once; the unique index enforces it.
type Review struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_reviews_user_course" json:"user_id"`
	CourseID  uint           `gorm:"not null;uniqueIndex:idx_reviews_user_course;index:idx_reviews_course_approved" json:"course_id"`

	Teacher   ReviewTeacher `gorm:"embedded;embeddedPrefix:teacher_" json:"teacher"`
	Rating    ReviewRating  `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	Body      ReviewBody    `gorm:"embedded;embeddedPrefix:review_" json:"review"`
	StudyInfo StudyInfo     `gorm:"embedded;embeddedPrefix:study_" json:"study_info"`
	Semester  ReviewTerm    `gorm:"embedded;embeddedPrefix:semester_" json:"semester"`

	WouldRecommend bool    `gorm:"not null" json:"would_recommend"`
	IsAnonymous    bool    `gorm:"default:false" json:"is_anonymous"`
	ChillScore     float64 `gorm:"default:5" json:"chill_score"`

	// Moderation
	IsApproved      bool                            `gorm:"default:false;index:idx_reviews_course_approved" json:"is_approved"`
	ModeratedBy     *uint                           `json:"moderated_by,omitempty"`
	ModeratedAt     *time.Time                      `json:"moderated_at,omitempty"`
	ModerationNotes string                          `gorm:"type:text" json:"moderation_notes,omitempty"`
	FlaggedReasons  datatypes.JSONSlice[FlagReason] `gorm:"type:jsonb" json:"flagged_reasons"`

	// Engagement
	HelpfulVotes   int `gorm:"default:0;index" json:"helpful_votes"`
	UnhelpfulVotes int `gorm:"default:0" json:"unhelpful_votes"`
	Reports        int `gorm:"default:0" json:"reports"`

	IsEdited    bool                           `gorm:"default:false" json:"is_edited"`
	EditHistory datatypes.JSONSlice[EditEntry] `gorm:"type:jsonb" json:"edit_history,omitempty"`

	// Relationships
	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// ReviewTeacher names the teacher the review is about
type ReviewTeacher struct {
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	TeacherRef *uint  `json:"teacher_ref,omitempty"`
}

// ReviewRating holds the overall rating and optional sub-ratings, all 1-10
type ReviewRating struct {
	Overall    int  `gorm:"not null;index" json:"overall"`
	Teaching   *int `json:"teaching,omitempty"`
	Content    *int `json:"content,omitempty"`
	Difficulty *int `json:"difficulty,omitempty"`
	Workload   *int `json:"workload,omitempty"`
}

// ReviewBody is the written part of a review
type ReviewBody struct {
	Title   string                      `gorm:"type:varchar(100)" json:"title,omitempty"`
	Content string                      `gorm:"type:text;not null" json:"content"`
	Pros    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"pros"`
	Cons    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"cons"`
	Tips    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tips"`
}

// StudyInfo describes the effort a course took
type StudyInfo struct {
	StudyHoursPerWeek  *float64              `json:"study_hours_per_week,omitempty"`
	StudyTime          string                `gorm:"type:varchar(500)" json:"study_time,omitempty"`
	AttendanceRequired AttendanceRequirement `gorm:"type:varchar(30);default:'Unknown'" json:"attendance_required"`
	ExamPattern        ExamPattern           `gorm:"type:varchar(30);default:'Written Exam'" json:"exam_pattern"`
}

// ReviewTerm is the semester the reviewer took the course in
type ReviewTerm struct {
	Year int  `gorm:"not null" json:"year"`
	Term Term `gorm:"type:varchar(10);not null" json:"term"`
}

// EditEntry records one edit made by the review owner
type EditEntry struct {
	EditedAt time.Time `json:"edited_at"`
	Changes  string    `json:"changes"`
}

// TableName specifies the table name for Review
func (Review) TableName() string {
	return "reviews"
}

// HelpfulnessRatio is helpful votes over all votes, 0 when nobody voted
func (r *Review) HelpfulnessRatio() float64 {
	total := r.HelpfulVotes + r.UnhelpfulVotes
	if total == 0 {
		return 0
	}
	return float64(r.HelpfulVotes) / float64(total)
}

// HasFlag reports whether the review already carries the given flag reason
func (r *Review) HasFlag(reason FlagReason) bool {
	for _, f := range r.FlaggedReasons {
		if f == reason {
			return true
		}
	}
	return false
}
