package services

import (
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/utils/validation"
	"gorm.io/datatypes"
)

// ReviewInput is the client payload for a new review
type ReviewInput struct {
	CourseID       uint           `json:"course_id" validate:"required,min=1"`
	Teacher        TeacherInput   `json:"teacher"`
	Rating         RatingInput    `json:"rating"`
	Review         BodyInput      `json:"review"`
	StudyInfo      StudyInfoInput `json:"study_info"`
	Semester       SemesterInput  `json:"semester"`
	WouldRecommend *bool          `json:"would_recommend" validate:"required"`
	IsAnonymous    bool           `json:"is_anonymous"`
}

// TeacherInput names the teacher being reviewed
type TeacherInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	TeacherRef *uint  `json:"teacher_ref,omitempty"`
}

// RatingInput carries the overall rating and optional sub-ratings
type RatingInput struct {
	Overall    int  `json:"overall" validate:"required,min=1,max=10"`
	Teaching   *int `json:"teaching,omitempty" validate:"omitempty,min=1,max=10"`
	Content    *int `json:"content,omitempty" validate:"omitempty,min=1,max=10"`
	Difficulty *int `json:"difficulty,omitempty" validate:"omitempty,min=1,max=10"`
	Workload   *int `json:"workload,omitempty" validate:"omitempty,min=1,max=10"`
}

// BodyInput is the written part of a review
type BodyInput struct {
	Title   string   `json:"title,omitempty" validate:"max=100"`
	Content string   `json:"content" validate:"required,max=2000"`
	Pros    []string `json:"pros,omitempty" validate:"omitempty,dive,max=200"`
	Cons    []string `json:"cons,omitempty" validate:"omitempty,dive,max=200"`
	Tips    []string `json:"tips,omitempty" validate:"omitempty,dive,max=200"`
}

// StudyInfoInput describes the effort a course took
type StudyInfoInput struct {
	StudyHoursPerWeek  *float64 `json:"study_hours_per_week,omitempty" validate:"omitempty,min=0,max=100"`
	StudyTime          string   `json:"study_time,omitempty" validate:"max=500"`
	AttendanceRequired string   `json:"attendance_required,omitempty"`
	ExamPattern        string   `json:"exam_pattern,omitempty"`
}

// SemesterInput is the term the course was taken in
type SemesterInput struct {
	Year int    `json:"year" validate:"required,min=2020,max=2030"`
	Term string `json:"term" validate:"required"`
}

// ReviewFactory builds reviews that satisfy every field constraint, or
// fails with a ValidationError naming the first bad field.
type ReviewFactory struct {
	validator *validation.Validator
}

// NewReviewFactory creates a review factory
func NewReviewFactory() *ReviewFactory {
	return &ReviewFactory{validator: validation.NewValidator()}
}

// NewReview constructs a review owned by userID. No partial review is
// returned on failure.
func (f *ReviewFactory) NewReview(userID uint, in ReviewInput) (*model.Review, error) {
	if userID == 0 {
		return nil, NewValidationError("user", "user is required")
	}

	sanitizeReviewInput(&in)

	if err := f.validator.ValidateStruct(in); err != nil {
		return nil, structValidationError(err, "review")
	}

	attendance, exam, err := resolveStudyEnums(in.StudyInfo)
	if err != nil {
		return nil, err
	}

	if !oneOf(in.Semester.Term, model.Terms) {
		return nil, NewValidationError("semester.term", "term must be one of Odd, Even, Summer")
	}

	review := &model.Review{
		UserID:   userID,
		CourseID: in.CourseID,
		Teacher: model.ReviewTeacher{
			Name:       in.Teacher.Name,
			TeacherRef: in.Teacher.TeacherRef,
		},
		Rating: model.ReviewRating{
			Overall:    in.Rating.Overall,
			Teaching:   in.Rating.Teaching,
			Content:    in.Rating.Content,
			Difficulty: in.Rating.Difficulty,
			Workload:   in.Rating.Workload,
		},
		Body: model.ReviewBody{
			Title:   in.Review.Title,
			Content: in.Review.Content,
			Pros:    datatypes.JSONSlice[string](in.Review.Pros),
			Cons:    datatypes.JSONSlice[string](in.Review.Cons),
			Tips:    datatypes.JSONSlice[string](in.Review.Tips),
		},
		StudyInfo: model.StudyInfo{
			StudyHoursPerWeek:  in.StudyInfo.StudyHoursPerWeek,
			StudyTime:          in.StudyInfo.StudyTime,
			AttendanceRequired: attendance,
			ExamPattern:        exam,
		},
		Semester: model.ReviewTerm{
			Year: in.Semester.Year,
			Term: model.Term(in.Semester.Term),
		},
		WouldRecommend: *in.WouldRecommend,
		IsAnonymous:    in.IsAnonymous,
		IsApproved:     false,
		FlaggedReasons: datatypes.JSONSlice[model.FlagReason]{},
	}
	review.ChillScore = CalculateChillScore(review.Body.Content, review.StudyInfo.StudyTime)

	return review, nil
}

// ApplyEdit validates an owner edit and applies it to review, returning the
// names of the sections that changed. The chill score follows the new text.
// review is left untouched when the edit is invalid.
func (f *ReviewFactory) ApplyEdit(review *model.Review, in ReviewEditInput) ([]string, error) {
	if in.Review != nil {
		sanitizeBody(in.Review)
	}
	if in.StudyInfo != nil {
		sanitizeStudyInfo(in.StudyInfo)
	}

	if err := f.validator.ValidateStruct(in); err != nil {
		return nil, structValidationError(err, "review")
	}

	var (
		attendance model.AttendanceRequirement
		exam       model.ExamPattern
	)
	if in.StudyInfo != nil {
		var err error
		if attendance, exam, err = resolveStudyEnums(*in.StudyInfo); err != nil {
			return nil, err
		}
	}

	var changes []string
	if in.Rating != nil {
		review.Rating = model.ReviewRating{
			Overall:    in.Rating.Overall,
			Teaching:   in.Rating.Teaching,
			Content:    in.Rating.Content,
			Difficulty: in.Rating.Difficulty,
			Workload:   in.Rating.Workload,
		}
		changes = append(changes, "rating")
	}
	if in.Review != nil {
		review.Body = model.ReviewBody{
			Title:   in.Review.Title,
			Content: in.Review.Content,
			Pros:    datatypes.JSONSlice[string](in.Review.Pros),
			Cons:    datatypes.JSONSlice[string](in.Review.Cons),
			Tips:    datatypes.JSONSlice[string](in.Review.Tips),
		}
		changes = append(changes, "review")
	}
	if in.StudyInfo != nil {
		review.StudyInfo = model.StudyInfo{
			StudyHoursPerWeek:  in.StudyInfo.StudyHoursPerWeek,
			StudyTime:          in.StudyInfo.StudyTime,
			AttendanceRequired: attendance,
			ExamPattern:        exam,
		}
		changes = append(changes, "study_info")
	}
	if in.WouldRecommend != nil && *in.WouldRecommend != review.WouldRecommend {
		review.WouldRecommend = *in.WouldRecommend
		changes = append(changes, "would_recommend")
	}

	review.ChillScore = CalculateChillScore(review.Body.Content, review.StudyInfo.StudyTime)
	return changes, nil
}

func resolveStudyEnums(in StudyInfoInput) (model.AttendanceRequirement, model.ExamPattern, error) {
	attendance := model.AttendanceUnknown
	if in.AttendanceRequired != "" {
		if !oneOf(in.AttendanceRequired, model.Attendances) {
			return "", "", NewValidationError("study_info.attendance_required", "unknown attendance requirement %q", in.AttendanceRequired)
		}
		attendance = model.AttendanceRequirement(in.AttendanceRequired)
	}

	exam := model.ExamWritten
	if in.ExamPattern != "" {
		if !oneOf(in.ExamPattern, model.ExamPatterns) {
			return "", "", NewValidationError("study_info.exam_pattern", "unknown exam pattern %q", in.ExamPattern)
		}
		exam = model.ExamPattern(in.ExamPattern)
	}
	return attendance, exam, nil
}

func sanitizeReviewInput(in *ReviewInput) {
	in.Teacher.Name = validation.SanitizeString(in.Teacher.Name)
	sanitizeBody(&in.Review)
	sanitizeStudyInfo(&in.StudyInfo)
	in.Semester.Term = validation.SanitizeString(in.Semester.Term)
}

func sanitizeBody(in *BodyInput) {
	in.Title = validation.SanitizeString(in.Title)
	in.Content = validation.SanitizeString(in.Content)
	in.Pros = validation.SanitizeList(in.Pros)
	in.Cons = validation.SanitizeList(in.Cons)
	in.Tips = validation.SanitizeList(in.Tips)
}

func sanitizeStudyInfo(in *StudyInfoInput) {
	in.StudyTime = validation.SanitizeString(in.StudyTime)
	in.AttendanceRequired = validation.SanitizeString(in.AttendanceRequired)
	in.ExamPattern = validation.SanitizeString(in.ExamPattern)
}

func oneOf[T ~string](value string, allowed []T) bool {
	for _, a := range allowed {
		if string(a) == value {
			return true
		}
	}
	return false
}
