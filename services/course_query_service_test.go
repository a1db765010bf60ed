package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// putRated stores a course with ready made statistics
func (f *fixture) putRated(number int, name string, typ model.CourseType, avg, chill float64, reviews int) model.Course {
	c := model.NewCourseDefaults()
	c.CourseNumber = number
	c.Name = name
	c.Type = typ
	c.Statistics.AvgRating = avg
	c.Statistics.ChillScore = chill
	c.Statistics.TotalReviews = reviews
	return f.db.PutCourse(c)
}

func TestListCoursesPaginates(t *testing.T) {
	f := newFixture()
	for i := 1; i <= 5; i++ {
		f.putRated(i, "Course", model.CourseTypeFEC, float64(i), 5, i)
	}

	page, err := f.query.ListCourses(context.Background(), services.CourseQuery{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.Page)
	require.Len(t, page.Items, 1)
	// default order is rating, highest first
	assert.Equal(t, 1.0, page.Items[0].Statistics.AvgRating)

	empty, err := f.query.ListCourses(context.Background(), services.CourseQuery{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestListCoursesClampsLimit(t *testing.T) {
	f := newFixture()
	f.putRated(1, "Course", model.CourseTypeFEC, 5, 5, 0)

	page, err := f.query.ListCourses(context.Background(), services.CourseQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, services.MaxPageSize, page.Limit)
	assert.Equal(t, 1, page.Page)
}

func TestListCoursesFilters(t *testing.T) {
	f := newFixture()
	photo := f.putRated(1, "Digital Photography", model.CourseTypeFEC, 8, 9, 4)
	markets := f.putRated(2, "Financial Markets", model.CourseTypeOE, 6, 4, 12)
	ml := f.putRated(3, "Applied Machine Learning", model.CourseTypePE, 3, 2, 5)

	ml.Flags.IsTrapCourse = true
	ml.Teachers = datatypes.JSONSlice[model.Teacher]{{Name: "Dr. Kulkarni"}}
	f.db.PutCourse(ml)
	photo.Flags.HasNoExam = true
	f.db.PutCourse(photo)
	markets.Flags.IsPopular = true
	f.db.PutCourse(markets)

	tests := []struct {
		name  string
		query services.CourseQuery
		want  []uint
	}{
		{"search by name", services.CourseQuery{Search: "photo"}, []uint{photo.ID}},
		{"search by teacher", services.CourseQuery{Search: "kulkarni"}, []uint{ml.ID}},
		{"type", services.CourseQuery{Type: "OE"}, []uint{markets.ID}},
		{"trap goal", services.CourseQuery{Goal: "trap"}, []uint{ml.ID}},
		{"no exam goal", services.CourseQuery{Goal: "no_exam"}, []uint{photo.ID}},
		{"popular goal", services.CourseQuery{Goal: "popular"}, []uint{markets.ID}},
		{"sort by chill", services.CourseQuery{SortBy: "chill"}, []uint{photo.ID, markets.ID, ml.ID}},
		{"sort by reviews", services.CourseQuery{SortBy: "reviews"}, []uint{markets.ID, ml.ID, photo.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.query.ListCourses(context.Background(), tt.query)
			require.NoError(t, err)
			var got []uint
			for _, c := range page.Items {
				got = append(got, c.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListCoursesRejectsUnknownParameters(t *testing.T) {
	f := newFixture()

	tests := []struct {
		query services.CourseQuery
		field string
	}{
		{services.CourseQuery{SortBy: "name"}, "sortBy"},
		{services.CourseQuery{Type: "LAB"}, "type"},
		{services.CourseQuery{Goal: "easy"}, "goal"},
	}
	for _, tt := range tests {
		_, err := f.query.ListCourses(context.Background(), tt.query)
		var verr *services.ValidationError
		require.True(t, errors.As(err, &verr), "query %+v", tt.query)
		assert.Equal(t, tt.field, verr.Field)
	}
}

func TestListCoursesSkipsInactive(t *testing.T) {
	f := newFixture()
	f.putRated(1, "Visible", model.CourseTypeFEC, 5, 5, 0)
	hidden := f.putRated(2, "Hidden", model.CourseTypeFEC, 9, 5, 0)
	hidden.IsActive = false
	f.db.PutCourse(hidden)

	page, err := f.query.ListCourses(context.Background(), services.CourseQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Visible", page.Items[0].Name)

	_, err = f.query.GetCourse(context.Background(), hidden.ID)
	assert.True(t, services.IsNotFoundError(err))
}

func TestGetCourseReturnsRecentApprovedReviews(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)

	for i := 0; i < 12; i++ {
		u := f.addUser(true)
		f.db.PutReview(model.Review{UserID: u.ID, CourseID: course.ID, Rating: model.ReviewRating{Overall: 7}, IsApproved: true})
	}
	pendingAuthor := f.addUser(false)
	pending := f.db.PutReview(model.Review{UserID: pendingAuthor.ID, CourseID: course.ID, Rating: model.ReviewRating{Overall: 1}})

	detail, err := f.query.GetCourse(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, detail.Course.ID)
	require.Len(t, detail.RecentReviews, services.RecentReviewsLimit)
	for i, r := range detail.RecentReviews {
		assert.NotEqual(t, pending.ID, r.ID)
		if i > 0 {
			assert.True(t, r.CreatedAt.Before(detail.RecentReviews[i-1].CreatedAt))
		}
		require.NotNil(t, r.User)
		assert.Empty(t, r.User.Email)
	}
}

func TestGetCourseWithoutReviews(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)

	detail, err := f.query.GetCourse(context.Background(), course.ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.RecentReviews)
	assert.Empty(t, detail.RecentReviews)
}

func TestListReviewsOrdering(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	a := f.addUser(true)
	b := f.addUser(true)

	older := f.db.PutReview(model.Review{UserID: a.ID, CourseID: course.ID, Rating: model.ReviewRating{Overall: 7}, IsApproved: true, HelpfulVotes: 5})
	newer := f.db.PutReview(model.Review{UserID: b.ID, CourseID: course.ID, Rating: model.ReviewRating{Overall: 7}, IsApproved: true})

	page, err := f.query.ListReviews(context.Background(), services.ReviewQuery{CourseID: course.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, newer.ID, page.Items[0].ID)

	page, err = f.query.ListReviews(context.Background(), services.ReviewQuery{CourseID: course.ID, SortBy: "helpful"})
	require.NoError(t, err)
	assert.Equal(t, older.ID, page.Items[0].ID)

	_, err = f.query.ListReviews(context.Background(), services.ReviewQuery{CourseID: course.ID, SortBy: "rating"})
	assert.True(t, services.IsValidationError(err))

	_, err = f.query.ListReviews(context.Background(), services.ReviewQuery{CourseID: 404})
	assert.True(t, services.IsNotFoundError(err))
}

func TestUserReviewsIncludesPendingAndCourse(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(false)

	_, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)

	page, err := f.query.UserReviews(context.Background(), user.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.False(t, page.Items[0].IsApproved)
	require.NotNil(t, page.Items[0].Course)
	assert.Equal(t, "Photography", page.Items[0].Course.Name)
}

func TestPopularAndTrapHighlights(t *testing.T) {
	f := newFixture()
	big := f.putRated(1, "Big", model.CourseTypeFEC, 8, 5, 40)
	small := f.putRated(2, "Small", model.CourseTypeFEC, 7.5, 5, 11)
	bad := f.putRated(3, "Bad", model.CourseTypeFEC, 3.9, 5, 4)
	worse := f.putRated(4, "Worse", model.CourseTypeFEC, 1.2, 5, 3)
	for _, c := range []*model.Course{&big, &small} {
		c.Flags.IsPopular = true
		f.db.PutCourse(*c)
	}
	for _, c := range []*model.Course{&bad, &worse} {
		c.Flags.IsTrapCourse = true
		f.db.PutCourse(*c)
	}

	popular, err := f.query.Popular(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, big.ID, popular[0].ID)

	traps, err := f.query.Traps(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, traps, 1)
	assert.Equal(t, worse.ID, traps[0].ID)
}

func TestRecordViewSkipsAnonymousVisitors(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)

	f.query.RecordView(context.Background(), 0, course.ID, services.ActivityContext{})
	f.query.RecordView(context.Background(), user.ID, course.ID, services.ActivityContext{UserAgent: "test"})

	activities := f.db.Activities()
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityTypeCourseView, activities[0].ActivityType)
	assert.Equal(t, course.ID, activities[0].ResourceID)
}
