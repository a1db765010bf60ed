package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCreateAutoApprovesVerifiedUser(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)

	review, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 8), services.ActivityContext{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.True(t, review.IsApproved)

	stored, _ := f.db.Course(course.ID)
	assert.Equal(t, 1, stored.Statistics.TotalReviews)
	assert.Equal(t, 8.0, stored.Statistics.AvgRating)
	assert.Equal(t, 100, stored.Statistics.RecommendationPercentage)

	u, _ := f.db.User(user.ID)
	assert.Equal(t, 1, u.Activity.ReviewsSubmitted)

	activities := f.db.Activities()
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityTypeReviewSubmit, activities[0].ActivityType)
	assert.Equal(t, "10.0.0.1", activities[0].IPAddress)
}

func TestCreateLeavesUnverifiedReviewPending(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(false)

	review, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)
	assert.False(t, review.IsApproved)
	assert.Zero(t, f.db.StatisticsCalls)

	stored, _ := f.db.Course(course.ID)
	assert.Zero(t, stored.Statistics.TotalReviews)
}

func TestCreateGateReadsCountBeforeSubmission(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)

	trusted := f.addUser(true)
	trusted.Activity.ReviewsSubmitted = 49
	f.db.PutUser(trusted)

	prolific := f.addUser(true)
	prolific.Activity.ReviewsSubmitted = 50
	f.db.PutUser(prolific)

	r1, err := f.reviews.Create(context.Background(), trusted.ID, reviewInput(course.ID, 7), services.ActivityContext{})
	require.NoError(t, err)
	assert.True(t, r1.IsApproved)

	r2, err := f.reviews.Create(context.Background(), prolific.ID, reviewInput(course.ID, 7), services.ActivityContext{})
	require.NoError(t, err)
	assert.False(t, r2.IsApproved)
}

func TestCreateRejectsSecondReviewOfSameCourse(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)

	_, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)

	review, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 3), services.ActivityContext{})
	assert.Nil(t, review)
	assert.True(t, services.IsConflictError(err))
	assert.ErrorIs(t, err, services.ErrDuplicate)

	stored, _ := f.db.Course(course.ID)
	assert.Equal(t, 1, stored.Statistics.TotalReviews)
	assert.Equal(t, 8.0, stored.Statistics.AvgRating)
}

func TestCreateInvalidInputStoresNothing(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)

	_, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 11), services.ActivityContext{})
	require.Error(t, err)

	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "rating.overall", verr.Field)

	_, total, err := f.db.Reviews().List(context.Background(), services.ReviewFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	u, _ := f.db.User(user.ID)
	assert.Zero(t, u.Activity.ReviewsSubmitted)
}

func TestCreateUnknownOrInactiveCourse(t *testing.T) {
	f := newFixture()
	user := f.addUser(true)
	hidden := f.addCourse(7, "Archived", model.CourseTypeOE)
	hidden.IsActive = false
	f.db.PutCourse(hidden)

	_, err := f.reviews.Create(context.Background(), user.ID, reviewInput(999, 8), services.ActivityContext{})
	assert.True(t, services.IsNotFoundError(err))

	_, err = f.reviews.Create(context.Background(), user.ID, reviewInput(hidden.ID, 8), services.ActivityContext{})
	assert.True(t, services.IsNotFoundError(err))
}

func TestCreateReturnsStoredReviewWhenStatisticsStale(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)
	f.db.StatisticsFailures = 3

	review, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NotNil(t, review)
	assert.ErrorIs(t, err, services.ErrStatisticsStale)
	assert.Equal(t, 3, f.db.StatisticsCalls)

	stored, ok := f.db.Review(review.ID)
	require.True(t, ok)
	assert.True(t, stored.IsApproved)

	// A later recompute repairs the course
	_, err = f.stats.Recompute(context.Background(), course.ID)
	require.NoError(t, err)
	c, _ := f.db.Course(course.ID)
	assert.Equal(t, 1, c.Statistics.TotalReviews)
}

func TestRecomputeRetriesConsistencyFailures(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	f.db.StatisticsFailures = 2

	updated, err := f.stats.Recompute(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, f.db.StatisticsCalls)
	assert.Equal(t, course.ID, updated.ID)
}

func TestRecomputeUnknownCourseDoesNotRetry(t *testing.T) {
	f := newFixture()

	_, err := f.stats.Recompute(context.Background(), 42)
	assert.True(t, services.IsNotFoundError(err))
	assert.Equal(t, 1, f.db.StatisticsCalls)
}

func TestApproveRecomputesOnlyOnTransition(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(false)
	moderator := f.addUser(true)

	pending, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 6), services.ActivityContext{})
	require.NoError(t, err)

	approved, err := f.reviews.Approve(context.Background(), moderator.ID, pending.ID, "  looks fine ")
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	require.NotNil(t, approved.ModeratedBy)
	assert.Equal(t, moderator.ID, *approved.ModeratedBy)
	assert.Equal(t, "looks fine", approved.ModerationNotes)
	assert.Equal(t, 1, f.db.StatisticsCalls)

	_, err = f.reviews.Approve(context.Background(), moderator.ID, pending.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.db.StatisticsCalls)

	c, _ := f.db.Course(course.ID)
	assert.Equal(t, 1, c.Statistics.TotalReviews)
	assert.Equal(t, 6.0, c.Statistics.AvgRating)
}

func TestApproveUnknownReview(t *testing.T) {
	f := newFixture()
	_, err := f.reviews.Approve(context.Background(), 1, 77, "")
	assert.True(t, services.IsNotFoundError(err))
}

func TestConcurrentSubmissionsKeepCountInStep(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)

	const n = 20
	users := make([]model.User, n)
	for i := range users {
		users[i] = f.addUser(true)
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i := range users {
		u := users[i]
		rating := 1 + i%10
		g.Go(func() error {
			_, err := f.reviews.Create(ctx, u.ID, reviewInput(course.ID, rating), services.ActivityContext{})
			return err
		})
	}
	require.NoError(t, g.Wait())

	c, _ := f.db.Course(course.ID)
	assert.Equal(t, n, c.Statistics.TotalReviews)
	// ratings 1..10 twice: mean 5.5
	assert.Equal(t, 5.5, c.Statistics.AvgRating)
	assert.False(t, c.Flags.IsPopular)
}

func TestEditApprovedReviewRecomputesCourse(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)

	review, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)

	no := false
	edited, err := f.reviews.Edit(context.Background(), user.ID, review.ID, services.ReviewEditInput{
		Rating:         &services.RatingInput{Overall: 3},
		WouldRecommend: &no,
	})
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.True(t, edited.IsApproved)
	require.Len(t, edited.EditHistory, 1)
	assert.Equal(t, "rating, would_recommend", edited.EditHistory[0].Changes)

	c, _ := f.db.Course(course.ID)
	assert.Equal(t, 3.0, c.Statistics.AvgRating)
	assert.Equal(t, 0, c.Statistics.RecommendationPercentage)
}

func TestEditWithoutChangesKeepsHistory(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	user := f.addUser(true)

	review, err := f.reviews.Create(context.Background(), user.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)
	calls := f.db.StatisticsCalls

	edited, err := f.reviews.Edit(context.Background(), user.ID, review.ID, services.ReviewEditInput{})
	require.NoError(t, err)
	assert.False(t, edited.IsEdited)
	assert.Equal(t, calls, f.db.StatisticsCalls)
}

func TestEditByAnotherUserIsForbidden(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	owner := f.addUser(true)
	other := f.addUser(true)

	review, err := f.reviews.Create(context.Background(), owner.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)

	_, err = f.reviews.Edit(context.Background(), other.ID, review.ID, services.ReviewEditInput{
		Rating: &services.RatingInput{Overall: 1},
	})
	assert.ErrorIs(t, err, services.ErrForbidden)

	stored, _ := f.db.Review(review.ID)
	assert.Equal(t, 8, stored.Rating.Overall)
}

func TestVoteAndReportCounters(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	author := f.addUser(true)
	reader := f.addUser(true)

	review, err := f.reviews.Create(context.Background(), author.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)

	require.NoError(t, f.reviews.Vote(context.Background(), reader.ID, review.ID, true, services.ActivityContext{}))
	require.NoError(t, f.reviews.Vote(context.Background(), reader.ID, review.ID, true, services.ActivityContext{}))
	require.NoError(t, f.reviews.Vote(context.Background(), reader.ID, review.ID, false, services.ActivityContext{}))
	require.NoError(t, f.reviews.Report(context.Background(), review.ID))

	stored, _ := f.db.Review(review.ID)
	assert.Equal(t, 2, stored.HelpfulVotes)
	assert.Equal(t, 1, stored.UnhelpfulVotes)
	assert.Equal(t, 1, stored.Reports)

	votes := 0
	for _, a := range f.db.Activities() {
		if a.ActivityType == model.ActivityTypeReviewVote {
			votes++
		}
	}
	assert.Equal(t, 3, votes)

	assert.True(t, services.IsNotFoundError(f.reviews.Report(context.Background(), 999)))
}

func TestFlagMergesReasonsWithoutChangingApproval(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	author := f.addUser(true)
	moderator := f.addUser(true)

	review, err := f.reviews.Create(context.Background(), author.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)

	_, err = f.reviews.Flag(context.Background(), moderator.ID, review.ID, []string{"Spam"})
	require.NoError(t, err)
	flagged, err := f.reviews.Flag(context.Background(), moderator.ID, review.ID, []string{"Spam", "Irrelevant"})
	require.NoError(t, err)

	assert.Equal(t, []model.FlagReason{model.FlagSpam, model.FlagIrrelevant}, []model.FlagReason(flagged.FlaggedReasons))
	assert.True(t, flagged.IsApproved)

	_, err = f.reviews.Flag(context.Background(), moderator.ID, review.ID, []string{"Boring"})
	assert.True(t, services.IsValidationError(err))
	_, err = f.reviews.Flag(context.Background(), moderator.ID, review.ID, nil)
	assert.True(t, services.IsValidationError(err))
}

func TestPendingListsOldestFirst(t *testing.T) {
	f := newFixture()
	a := f.addCourse(1, "Photography", model.CourseTypeFEC)
	b := f.addCourse(2, "Markets", model.CourseTypeOE)
	user := f.addUser(false)

	first, err := f.reviews.Create(context.Background(), user.ID, reviewInput(a.ID, 8), services.ActivityContext{})
	require.NoError(t, err)
	second, err := f.reviews.Create(context.Background(), user.ID, reviewInput(b.ID, 5), services.ActivityContext{})
	require.NoError(t, err)

	pending, total, err := f.reviews.Pending(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}

// racingReviews runs hook once, right after the first GetByID returns
type racingReviews struct {
	services.ReviewStore
	hook func()
}

func (r *racingReviews) GetByID(ctx context.Context, id uint) (*model.Review, error) {
	review, err := r.ReviewStore.GetByID(ctx, id)
	if r.hook != nil {
		hook := r.hook
		r.hook = nil
		hook()
	}
	return review, err
}

func TestEditKeepsConcurrentApprovalAndVotes(t *testing.T) {
	f := newFixture()
	course := f.addCourse(12, "Photography", model.CourseTypeFEC)
	author := f.addUser(false)
	reader := f.addUser(true)
	moderator := f.addUser(true)

	review, err := f.reviews.Create(context.Background(), author.ID, reviewInput(course.ID, 8), services.ActivityContext{})
	require.NoError(t, err)
	require.False(t, review.IsApproved)

	store := &racingReviews{ReviewStore: f.db.Reviews()}
	store.hook = func() {
		_, err := f.reviews.Approve(context.Background(), moderator.ID, review.ID, "ok")
		require.NoError(t, err)
		require.NoError(t, f.reviews.Vote(context.Background(), reader.ID, review.ID, true, services.ActivityContext{}))
	}
	editor := services.NewReviewService(store, f.db.Courses(), f.db.Users(), f.stats, nil)

	edited, err := editor.Edit(context.Background(), author.ID, review.ID, services.ReviewEditInput{
		Rating: &services.RatingInput{Overall: 3},
	})
	require.NoError(t, err)
	assert.True(t, edited.IsApproved)

	stored, _ := f.db.Review(review.ID)
	assert.True(t, stored.IsApproved, "edit must not revert an approval")
	require.NotNil(t, stored.ModeratedBy)
	assert.Equal(t, moderator.ID, *stored.ModeratedBy)
	assert.Equal(t, 1, stored.HelpfulVotes)
	assert.Equal(t, 3, stored.Rating.Overall)
	assert.True(t, stored.IsEdited)

	c, _ := f.db.Course(course.ID)
	assert.Equal(t, 1, c.Statistics.TotalReviews)
	assert.Equal(t, 3.0, c.Statistics.AvgRating)
}
