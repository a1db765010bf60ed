package services

import (
	"errors"
	"testing"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateChillScore(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		studyTime string
		want      float64
	}{
		{"neutral text keeps the base", "Taught by a guest lecturer", "", 5},
		{"three chill keywords", "This course is chill, no exam, 1-2 hours per week", "", 6.5},
		{"keyword counted once", "chill chill chill", "", 5.5},
		{"study time is included", "Good course", "ek raat before the paper", 5.5},
		{"substring match", "I felt uneasy", "", 5.5},
		{"case insensitive", "CHILL and EASY", "", 6},
		{"stress keywords subtract", "strict and hectic", "", 3},
		{"clamped at zero", "strict hectic daily compulsory 75% difficult tough hard stressful intensive", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateChillScore(tt.content, tt.studyTime))
		})
	}
}

func TestCalculateChillScoreClampsAtTen(t *testing.T) {
	text := "chill easy no stress no exam no paper presentation kam padna last day ek raat 0 hours 1-2 hours no assignment"
	assert.Equal(t, 10.0, CalculateChillScore(text, ""))
}

func TestModerationGate(t *testing.T) {
	gate := NewModerationGate()

	user := func(verified bool, submitted int) *model.User {
		return &model.User{IsEmailVerified: verified, Activity: model.ActivityCounters{ReviewsSubmitted: submitted}}
	}

	assert.True(t, gate.Decide(user(true, 0)))
	assert.True(t, gate.Decide(user(true, 49)))
	assert.False(t, gate.Decide(user(true, 50)))
	assert.False(t, gate.Decide(user(false, 0)))
	assert.False(t, gate.Decide(nil))
}

func aggregateOf(ratings ...int) ReviewAggregate {
	agg := ReviewAggregate{TotalReviews: int64(len(ratings))}
	for _, r := range ratings {
		agg.SumOverall += int64(r)
		if r >= 7 {
			agg.RecommendCount++
		}
	}
	return agg
}

func TestApplyStatisticsRounding(t *testing.T) {
	course := model.NewCourseDefaults()
	ApplyStatistics(&course, aggregateOf(8, 6, 9))

	assert.Equal(t, 3, course.Statistics.TotalReviews)
	assert.Equal(t, 7.7, course.Statistics.AvgRating)
	assert.Equal(t, 67, course.Statistics.RecommendationPercentage)
}

func TestApplyStatisticsTrapFlag(t *testing.T) {
	trap := model.NewCourseDefaults()
	ApplyStatistics(&trap, aggregateOf(2, 3, 3))
	assert.Equal(t, 2.7, trap.Statistics.AvgRating)
	assert.True(t, trap.Flags.IsTrapCourse)

	tooFew := model.NewCourseDefaults()
	ApplyStatistics(&tooFew, aggregateOf(1, 1))
	assert.Equal(t, 1.0, tooFew.Statistics.AvgRating)
	assert.False(t, tooFew.Flags.IsTrapCourse)
}

func TestApplyStatisticsPopularFlag(t *testing.T) {
	ten := make([]int, 10)
	for i := range ten {
		ten[i] = 7
	}
	popular := model.NewCourseDefaults()
	ApplyStatistics(&popular, aggregateOf(ten...))
	assert.Equal(t, 7.0, popular.Statistics.AvgRating)
	assert.True(t, popular.Flags.IsPopular)

	nine := make([]int, 9)
	for i := range nine {
		nine[i] = 8
	}
	notYet := model.NewCourseDefaults()
	ApplyStatistics(&notYet, aggregateOf(nine...))
	assert.Equal(t, 8.0, notYet.Statistics.AvgRating)
	assert.False(t, notYet.Flags.IsPopular)
}

func TestApplyStatisticsZeroReviewsOnlyResetsCountAndAverage(t *testing.T) {
	course := model.NewCourseDefaults()
	course.Statistics = model.CourseStatistics{
		AvgRating:                3.0,
		TotalReviews:             4,
		ChillScore:               8.5,
		AverageStudyHours:        6,
		RecommendationPercentage: 25,
	}
	course.Flags.IsTrapCourse = true

	ApplyStatistics(&course, ReviewAggregate{})

	assert.Equal(t, 0, course.Statistics.TotalReviews)
	assert.Equal(t, 0.0, course.Statistics.AvgRating)
	assert.Equal(t, 8.5, course.Statistics.ChillScore)
	assert.Equal(t, 6.0, course.Statistics.AverageStudyHours)
	assert.Equal(t, 25, course.Statistics.RecommendationPercentage)
	assert.True(t, course.Flags.IsTrapCourse)
}

func TestApplyStatisticsWritesChillAndStudyHours(t *testing.T) {
	chill, hours := 6.25, 3.04
	agg := aggregateOf(5, 6)
	agg.AvgChillScore = &chill
	agg.AvgStudyHours = &hours

	course := model.NewCourseDefaults()
	ApplyStatistics(&course, agg)

	assert.Equal(t, 6.3, course.Statistics.ChillScore)
	assert.Equal(t, 3.0, course.Statistics.AverageStudyHours)
}

func TestApplyStatisticsIsIdempotent(t *testing.T) {
	agg := aggregateOf(2, 3, 3, 9)
	first := model.NewCourseDefaults()
	ApplyStatistics(&first, agg)
	ApplyAutoTags(&first)

	second := first
	second.Tags = append([]string(nil), first.Tags...)
	ApplyStatistics(&second, agg)
	ApplyAutoTags(&second)

	assert.Equal(t, first.Statistics, second.Statistics)
	assert.Equal(t, first.Flags, second.Flags)
	assert.Equal(t, []string(first.Tags), []string(second.Tags))
}

func TestRoundHalfUpDiv(t *testing.T) {
	assert.Equal(t, int64(77), roundHalfUpDiv(230, 3))
	assert.Equal(t, int64(3), roundHalfUpDiv(5, 2))
	assert.Equal(t, int64(2), roundHalfUpDiv(7, 4))
	assert.Equal(t, int64(0), roundHalfUpDiv(0, 9))
}

func TestApplyAutoTagsUnion(t *testing.T) {
	course := model.NewCourseDefaults()
	course.Tags = []string{"fun"}
	course.Flags.HasNoExam = true
	course.Statistics.ChillScore = 9

	ApplyAutoTags(&course)
	assert.Equal(t, []string{"fun", "no-exam", "chill"}, []string(course.Tags))

	ApplyAutoTags(&course)
	assert.Equal(t, []string{"fun", "no-exam", "chill"}, []string(course.Tags))
}

func TestDeriveTags(t *testing.T) {
	course := model.NewCourseDefaults()
	course.Flags.IsProjectBased = true
	course.Statistics.ChillScore = 2
	course.Statistics.AvgRating = 8.5

	assert.Equal(t, []string{TagProjectBased, TagIntensive, TagHighlyRated}, DeriveTags(&course))
}

func TestApplyAutoTagsKeepsCaseDistinctTags(t *testing.T) {
	course := model.NewCourseDefaults()
	course.Tags = []string{"Chill"}
	course.Statistics.ChillScore = 8

	ApplyAutoTags(&course)
	assert.Equal(t, []string{"Chill", "chill"}, []string(course.Tags))
}

func validReviewInput(courseID uint) ReviewInput {
	yes := true
	return ReviewInput{
		CourseID: courseID,
		Teacher:  TeacherInput{Name: "Dr. Rao"},
		Rating:   RatingInput{Overall: 8},
		Review:   BodyInput{Content: "This course is chill, no exam, 1-2 hours per week"},
		Semester: SemesterInput{Year: 2024, Term: "Odd"},
		WouldRecommend: &yes,
	}
}

func TestReviewFactoryBuildsPendingReview(t *testing.T) {
	review, err := NewReviewFactory().NewReview(3, validReviewInput(7))
	require.NoError(t, err)

	assert.Equal(t, uint(3), review.UserID)
	assert.Equal(t, uint(7), review.CourseID)
	assert.False(t, review.IsApproved)
	assert.Equal(t, 6.5, review.ChillScore)
	assert.Equal(t, model.AttendanceUnknown, review.StudyInfo.AttendanceRequired)
	assert.Equal(t, model.ExamWritten, review.StudyInfo.ExamPattern)
	assert.Equal(t, model.TermOdd, review.Semester.Term)
}

func TestReviewFactoryRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReviewInput)
		field  string
	}{
		{"rating above range", func(in *ReviewInput) { in.Rating.Overall = 11 }, "rating.overall"},
		{"missing rating", func(in *ReviewInput) { in.Rating.Overall = 0 }, "rating.overall"},
		{"sub-rating below range", func(in *ReviewInput) { zero := 0; in.Rating.Workload = &zero }, "rating.workload"},
		{"missing teacher", func(in *ReviewInput) { in.Teacher.Name = "  " }, "teacher.name"},
		{"content too long", func(in *ReviewInput) {
			b := make([]byte, 2001)
			for i := range b {
				b[i] = 'a'
			}
			in.Review.Content = string(b)
		}, "review.content"},
		{"year out of range", func(in *ReviewInput) { in.Semester.Year = 2019 }, "semester.year"},
		{"unknown term", func(in *ReviewInput) { in.Semester.Term = "Spring" }, "semester.term"},
		{"unknown exam pattern", func(in *ReviewInput) { in.StudyInfo.ExamPattern = "Oral" }, "study_info.exam_pattern"},
		{"missing recommendation", func(in *ReviewInput) { in.WouldRecommend = nil }, "would_recommend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validReviewInput(1)
			tt.mutate(&in)

			review, err := NewReviewFactory().NewReview(1, in)
			assert.Nil(t, review)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestReviewFactoryApplyEdit(t *testing.T) {
	f := NewReviewFactory()
	review, err := f.NewReview(1, validReviewInput(1))
	require.NoError(t, err)

	changes, err := f.ApplyEdit(review, ReviewEditInput{
		Rating: &RatingInput{Overall: 4},
		Review: &BodyInput{Content: "Turned strict and hectic after midsems"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rating", "review"}, changes)
	assert.Equal(t, 4, review.Rating.Overall)
	assert.Equal(t, 3.0, review.ChillScore)

	before := *review
	_, err = f.ApplyEdit(review, ReviewEditInput{Rating: &RatingInput{Overall: 42}})
	assert.True(t, IsValidationError(err))
	assert.Equal(t, before.Rating, review.Rating)
}
