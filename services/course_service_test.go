package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/services/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func courseInput(number int, name string) services.CourseInput {
	return services.CourseInput{
		CourseNumber: number,
		Name:         name,
		Type:         "FEC",
		Department:   " Fine Arts ",
		Tags:         []string{"creative", " "},
	}
}

func TestCreateCourseAppliesDefaultsAndTags(t *testing.T) {
	db := memstore.New()
	svc := services.NewCourseService(db.Courses(), nil)

	in := courseInput(101, "Photography")
	in.HasNoExam = true
	course, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, course.IsActive)
	assert.Equal(t, "FEC-101", course.Identifier())
	assert.Equal(t, "Fine Arts", course.Department)
	assert.Equal(t, model.DefaultChillScore, course.Statistics.ChillScore)
	assert.Zero(t, course.Statistics.TotalReviews)
	assert.Equal(t, []string{"creative", services.TagNoExam}, []string(course.Tags))
}

func TestCreateCourseValidation(t *testing.T) {
	db := memstore.New()
	svc := services.NewCourseService(db.Courses(), nil)

	tests := []struct {
		name   string
		mutate func(*services.CourseInput)
		field  string
	}{
		{"missing name", func(in *services.CourseInput) { in.Name = "" }, "name"},
		{"unknown type", func(in *services.CourseInput) { in.Type = "LAB" }, "type"},
		{"missing number", func(in *services.CourseInput) { in.CourseNumber = 0 }, "course_id"},
		{"bad teacher email", func(in *services.CourseInput) {
			in.Teachers = []services.CourseTeacherInput{{Name: "Dr. Rao", Email: "rao"}}
		}, "teachers[0].email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := courseInput(101, "Photography")
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			var verr *services.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreateCourseDuplicateNumber(t *testing.T) {
	db := memstore.New()
	svc := services.NewCourseService(db.Courses(), nil)

	_, err := svc.Create(context.Background(), courseInput(101, "Photography"))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), courseInput(101, "Pottery"))
	assert.True(t, services.IsConflictError(err))
}

func TestUpsertKeepsStatistics(t *testing.T) {
	f := newFixture()
	svc := services.NewCourseService(f.db.Courses(), nil)

	created, err := svc.Upsert(context.Background(), courseInput(101, "Photography"))
	require.NoError(t, err)

	user := f.addUser(true)
	_, err = f.reviews.Create(context.Background(), user.ID, reviewInput(created.ID, 9), services.ActivityContext{})
	require.NoError(t, err)

	in := courseInput(101, "Digital Photography")
	in.IsProjectBased = true
	updated, err := svc.Upsert(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Digital Photography", updated.Name)
	assert.Equal(t, 1, updated.Statistics.TotalReviews)
	assert.Equal(t, 9.0, updated.Statistics.AvgRating)
	assert.Contains(t, []string(updated.Tags), services.TagProjectBased)
	assert.Contains(t, []string(updated.Tags), services.TagHighlyRated)
}

func TestDeactivateHidesCourse(t *testing.T) {
	f := newFixture()
	svc := services.NewCourseService(f.db.Courses(), nil)
	course, err := svc.Create(context.Background(), courseInput(101, "Photography"))
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), course.ID))
	require.NoError(t, svc.Deactivate(context.Background(), course.ID))

	_, err = f.query.GetCourse(context.Background(), course.ID)
	assert.True(t, services.IsNotFoundError(err))
	assert.True(t, services.IsNotFoundError(svc.Deactivate(context.Background(), 999)))
}

// racingCourses runs hook once, before Modify takes the course lock
type racingCourses struct {
	services.CourseStore
	hook func()
}

func (r *racingCourses) Modify(ctx context.Context, id uint, fn services.CourseUpdate) (*model.Course, error) {
	if r.hook != nil {
		hook := r.hook
		r.hook = nil
		hook()
	}
	return r.CourseStore.Modify(ctx, id, fn)
}

func TestUpdateCourseKeepsConcurrentRecompute(t *testing.T) {
	f := newFixture()
	course := f.addCourse(101, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)

	store := &racingCourses{CourseStore: f.db.Courses()}
	store.hook = func() {
		_, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 9), services.ActivityContext{})
		require.NoError(t, err)
	}
	svc := services.NewCourseService(store, nil)

	updated, err := svc.Update(context.Background(), course.ID, courseInput(101, "Digital Photography"))
	require.NoError(t, err)
	assert.Equal(t, "Digital Photography", updated.Name)
	assert.Equal(t, 1, updated.Statistics.TotalReviews)
	assert.Equal(t, 9.0, updated.Statistics.AvgRating)
	assert.Contains(t, []string(updated.Tags), services.TagHighlyRated)

	stored, _ := f.db.Course(course.ID)
	assert.Equal(t, 1, stored.Statistics.TotalReviews)
	assert.Equal(t, 9.0, stored.Statistics.AvgRating)
}

func TestCourseUpdatesInterleavedWithSubmissions(t *testing.T) {
	f := newFixture()
	course := f.addCourse(101, "Photography", model.CourseTypeFEC)
	svc := services.NewCourseService(f.db.Courses(), nil)

	users := make([]model.User, 10)
	for i := range users {
		users[i] = f.addUser(true)
	}

	var g errgroup.Group
	for i, u := range users {
		g.Go(func() error {
			_, err := f.reviews.Create(context.Background(), u.ID, reviewInput(course.ID, 8), services.ActivityContext{})
			return err
		})
		g.Go(func() error {
			in := courseInput(101, "Photography")
			in.Description = fmt.Sprintf("revision %d", i)
			_, err := svc.Update(context.Background(), course.ID, in)
			return err
		})
	}
	require.NoError(t, g.Wait())

	stored, _ := f.db.Course(course.ID)
	assert.Equal(t, 10, stored.Statistics.TotalReviews)
	assert.Equal(t, 8.0, stored.Statistics.AvgRating)
	assert.True(t, stored.Flags.IsPopular)
}

func TestUpdateCourseDuplicateNumber(t *testing.T) {
	db := memstore.New()
	svc := services.NewCourseService(db.Courses(), nil)

	_, err := svc.Create(context.Background(), courseInput(101, "Photography"))
	require.NoError(t, err)
	pottery, err := svc.Create(context.Background(), courseInput(102, "Pottery"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), pottery.ID, courseInput(101, "Pottery"))
	assert.True(t, services.IsConflictError(err))

	stored, _ := db.Course(pottery.ID)
	assert.Equal(t, 102, stored.CourseNumber)
}

func TestCreateCourseReportsEveryInvalidField(t *testing.T) {
	db := memstore.New()
	svc := services.NewCourseService(db.Courses(), nil)

	_, err := svc.Create(context.Background(), services.CourseInput{CourseNumber: 5, Type: "LAB"})
	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, []string{"name", "type"}, verr.Field)
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "type")

	_, err = svc.Create(context.Background(), services.CourseInput{CourseNumber: 5, Name: "Pottery", Type: "LAB"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "type", verr.Field)
	assert.Empty(t, verr.Fields)
}
