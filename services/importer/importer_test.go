package importer_test

import (
	"context"
	"os"
	"testing"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/services/importer"
	"github.com/sahilchouksey/course-review-api/services/memstore"
	"github.com/sahilchouksey/course-review-api/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	auth.Cost = 4
	os.Exit(m.Run())
}

const jsonDataset = `[
  {
    "id": 12,
    "type": "fec",
    "name": "Sports and Wellness",
    "teachers": {
      "Dr. Rao": {
        "avg_rating": 8.5,
        "reviews": [
          {"rating": 9, "review": "Very chill, no exam at all", "study_time": "No exam, attendance matters"},
          {"rating": null, "review": "forgot to rate"},
          {"rating": 14, "review": ""}
        ]
      },
      "Dr. Iyer": {
        "avg_rating": 12,
        "reviews": [{"rating": 2, "review": "Heavy workload and tough exams"}]
      }
    }
  }
]`

const yamlDataset = `
- id: 7
  type: OE
  name: Financial Markets
  teachers:
    Dr. Shah:
      avg_rating: 6
      reviews:
        - rating: 6
          review: Decent course
          study_time: 2 hours a week
`

func TestParseJSONAndYAML(t *testing.T) {
	courses, err := importer.Parse("reviews.json", []byte(jsonDataset))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 12, courses[0].ID)
	require.Len(t, courses[0].Teachers["Dr. Rao"].Reviews, 3)
	assert.Nil(t, courses[0].Teachers["Dr. Rao"].Reviews[1].Rating)

	courses, err = importer.Parse("reviews.YML", []byte(yamlDataset))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Financial Markets", courses[0].Name)
	require.NotNil(t, courses[0].Teachers["Dr. Shah"].Reviews[0].Rating)
	assert.Equal(t, 6, *courses[0].Teachers["Dr. Shah"].Reviews[0].Rating)

	_, err = importer.Parse("broken.json", []byte("{"))
	assert.Error(t, err)
}

func newImporter(db *memstore.DB) *importer.Importer {
	stats := services.NewCourseStatsService(db.Courses(), nil).WithRetry(1, 0)
	return importer.New(
		services.NewCourseService(db.Courses(), nil),
		services.NewReviewService(db.Reviews(), db.Courses(), db.Users(), stats, nil),
		services.NewAccountService(db.Users(), nil),
		nil,
	)
}

func TestRunImportsThroughServices(t *testing.T) {
	db := memstore.New()
	dataset, err := importer.Parse("reviews.json", []byte(jsonDataset))
	require.NoError(t, err)

	report, err := newImporter(db).Run(context.Background(), dataset)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Courses)
	assert.Equal(t, 3, report.ReviewsCreated)
	assert.Equal(t, 1, report.ReviewsSkipped)
	assert.Zero(t, report.ReviewsRejected)
	assert.Empty(t, report.StaleCourses)

	course, err := db.Courses().GetByCourseNumber(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, model.CourseTypeFEC, course.Type)
	assert.True(t, course.Flags.HasNoExam)
	require.Len(t, course.Teachers, 2)
	assert.Equal(t, "Dr. Iyer", course.Teachers[0].Name)
	assert.Equal(t, 10.0, course.Teachers[0].Rating)

	// ratings 9, 10 (clamped) and 2, all auto-approved
	assert.Equal(t, 3, course.Statistics.TotalReviews)
	assert.Equal(t, 7.0, course.Statistics.AvgRating)
	assert.Equal(t, 67, course.Statistics.RecommendationPercentage)

	reviews, _, err := db.Reviews().List(context.Background(), services.ReviewFilter{CourseID: course.ID})
	require.NoError(t, err)
	var sawDefault, sawNoExam bool
	for _, r := range reviews {
		assert.True(t, r.IsApproved)
		assert.True(t, r.IsAnonymous)
		if r.Body.Content == "No specific review provided." {
			sawDefault = true
		}
		if r.StudyInfo.ExamPattern == model.ExamNoExam {
			sawNoExam = true
			assert.Equal(t, model.AttendanceMandatory, r.StudyInfo.AttendanceRequired)
		}
	}
	assert.True(t, sawDefault)
	assert.True(t, sawNoExam)
}

func TestRunTwiceSkipsExistingReviews(t *testing.T) {
	db := memstore.New()
	dataset, err := importer.Parse("reviews.json", []byte(jsonDataset))
	require.NoError(t, err)
	im := newImporter(db)

	_, err = im.Run(context.Background(), dataset)
	require.NoError(t, err)
	report, err := im.Run(context.Background(), dataset)
	require.NoError(t, err)

	assert.Zero(t, report.ReviewsCreated)
	assert.Equal(t, 4, report.ReviewsSkipped)

	course, err := db.Courses().GetByCourseNumber(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, 3, course.Statistics.TotalReviews)
}

func TestRunReportsStaleCourses(t *testing.T) {
	db := memstore.New()
	dataset, err := importer.Parse("reviews.yaml", []byte(yamlDataset))
	require.NoError(t, err)
	db.StatisticsFailures = 1

	report, err := newImporter(db).Run(context.Background(), dataset)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ReviewsCreated)
	assert.Equal(t, []string{"OE-7"}, report.StaleCourses)
}

func TestRunStopsOnInvalidCourse(t *testing.T) {
	db := memstore.New()
	dataset := []importer.Course{{ID: 3, Type: "LAB", Name: "Robotics"}}

	report, err := newImporter(db).Run(context.Background(), dataset)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
	assert.Zero(t, report.Courses)
}
