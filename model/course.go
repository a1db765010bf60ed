package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseType is the elective category a course is offered under
type CourseType string

const (
	CourseTypeFEC  CourseType = "FEC"
	CourseTypeOE   CourseType = "OE"
	CourseTypePE   CourseType = "PE"
	CourseTypeMOOC CourseType = "MOOC"
)

// CourseTypes lists every valid course type
var CourseTypes = []CourseType{CourseTypeFEC, CourseTypeOE, CourseTypePE, CourseTypeMOOC}

// DifficultyLevel is the coarse difficulty bucket shown on a course card
type DifficultyLevel string

const (
	DifficultyVeryEasy DifficultyLevel = "Very Easy"
	DifficultyEasy     DifficultyLevel = "Easy"
	DifficultyModerate DifficultyLevel = "Moderate"
	DifficultyHard     DifficultyLevel = "Hard"
	DifficultyVeryHard DifficultyLevel = "Very Hard"
)

const (
	// DefaultChillScore is the neutral chill score a course starts with
	DefaultChillScore = 5.0
)

// Course represents an elective course that students review
type Course struct {
	ID            uint                         `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
	DeletedAt     gorm.DeletedAt               `gorm:"index" json:"-"`
	CourseNumber  int                          `gorm:"column:course_id;uniqueIndex;not null" json:"course_id"`
	Name          string                       `gorm:"type:varchar(200);not null" json:"name"`
	Type          CourseType                   `gorm:"type:varchar(10);not null;default:'FEC';index" json:"type"`
	Description   string                       `gorm:"type:text" json:"description"`
	Credits       int                          `gorm:"default:2" json:"credits"`
	Department    string                       `gorm:"type:varchar(255)" json:"department"`
	Prerequisites datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"prerequisites"`
	Syllabus      datatypes.JSONType[Syllabus] `gorm:"type:jsonb" json:"syllabus"`
	Teachers      datatypes.JSONSlice[Teacher] `gorm:"type:jsonb" json:"teachers"`
	Schedule      datatypes.JSONType[Schedule] `gorm:"type:jsonb" json:"schedule"`
	Statistics    CourseStatistics             `gorm:"embedded;embeddedPrefix:stat_" json:"statistics"`
	Flags         CourseFlags                  `gorm:"embedded;embeddedPrefix:flag_" json:"flags"`
	Tags          datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"tags"`
	IsActive      bool                         `gorm:"default:true;index" json:"is_active"`

	// Relationships
	Reviews []Review `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// Teacher is a denormalized snapshot of a teacher who takes a course
type Teacher struct {
	Name        string  `json:"name"`
	Designation string  `json:"designation,omitempty"`
	Department  string  `json:"department,omitempty"`
	Email       string  `json:"email,omitempty"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// Syllabus holds the published syllabus of a course
type Syllabus struct {
	Topics            []string          `json:"topics,omitempty"`
	LearningOutcomes  []string          `json:"learning_outcomes,omitempty"`
	AssessmentPattern AssessmentPattern `json:"assessment_pattern"`
}

// AssessmentPattern is the marks split between exams and internals
type AssessmentPattern struct {
	Midsem   int `json:"midsem"`
	Endsem   int `json:"endsem"`
	Internal int `json:"internal"`
}

// Schedule describes when a course runs
type Schedule struct {
	Semester  []string `json:"semester,omitempty"` // Odd, Even, Both
	TimeSlots []string `json:"time_slots,omitempty"`
	Duration  string   `json:"duration"`
}

// CourseStatistics is derived from approved reviews and never set by clients
type CourseStatistics struct {
	AvgRating                float64         `gorm:"default:0;index" json:"avg_rating"`
	TotalReviews             int             `gorm:"default:0;index" json:"total_reviews"`
	ChillScore               float64         `gorm:"default:5;index" json:"chill_score"`
	DifficultyLevel          DifficultyLevel `gorm:"type:varchar(20);default:'Moderate'" json:"difficulty_level"`
	PassingRate              float64         `gorm:"default:0" json:"passing_rate"`
	AverageStudyHours        float64         `gorm:"default:0" json:"average_study_hours"`
	RecommendationPercentage int             `gorm:"default:0" json:"recommendation_percentage"`
}

// CourseFlags are booleans computed from statistics and course content
type CourseFlags struct {
	IsTrapCourse   bool `gorm:"default:false;index" json:"is_trap_course"`
	IsPopular      bool `gorm:"default:false;index" json:"is_popular"`
	IsNew          bool `gorm:"default:false" json:"is_new"`
	HasNoExam      bool `gorm:"default:false;index" json:"has_no_exam"`
	IsProjectBased bool `gorm:"default:false" json:"is_project_based"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}

// Identifier returns the human-facing course code, e.g. "FEC-12"
func (c *Course) Identifier() string {
	return fmt.Sprintf("%s-%d", c.Type, c.CourseNumber)
}

// IsValidCourseType reports whether t is one of the known course types
func IsValidCourseType(t string) bool {
	for _, ct := range CourseTypes {
		if string(ct) == t {
			return true
		}
	}
	return false
}

// NewCourseDefaults returns a course with the statistics defaults applied
func NewCourseDefaults() Course {
	return Course{
		Type:     CourseTypeFEC,
		Credits:  2,
		IsActive: true,
		Syllabus: datatypes.NewJSONType(Syllabus{
			AssessmentPattern: AssessmentPattern{Midsem: 25, Endsem: 50, Internal: 25},
		}),
		Schedule: datatypes.NewJSONType(Schedule{Duration: "1 Semester"}),
		Statistics: CourseStatistics{
			ChillScore:      DefaultChillScore,
			DifficultyLevel: DifficultyModerate,
		},
		Tags:          datatypes.JSONSlice[string]{},
		Teachers:      datatypes.JSONSlice[Teacher]{},
		Prerequisites: datatypes.JSONSlice[string]{},
	}
}
