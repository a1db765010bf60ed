// Package memstore keeps courses, reviews and users in memory. It implements
// the services store interfaces with the same observable behavior as the
// PostgreSQL repositories and is used by service and handler tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
)

// DB is the shared backing state of the stores
type DB struct {
	mu sync.Mutex

	courses    map[uint]model.Course
	reviews    map[uint]model.Review
	users      map[uint]model.User
	activities []model.UserActivity

	nextCourse, nextReview, nextUser, nextActivity uint
	clock                                          time.Time

	// StatisticsFailures makes the next n UpdateStatistics calls fail with
	// services.ErrConsistencyRetry
	StatisticsFailures int
	// StatisticsCalls counts UpdateStatistics calls, failed ones included
	StatisticsCalls int
}

// New creates an empty database
func New() *DB {
	return &DB{
		courses: map[uint]model.Course{},
		reviews: map[uint]model.Review{},
		users:   map[uint]model.User{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so ordering by time is stable
func (db *DB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

// Courses returns the course store view of db
func (db *DB) Courses() *Courses { return &Courses{db: db} }

// Reviews returns the review store view of db
func (db *DB) Reviews() *Reviews { return &Reviews{db: db} }

// Users returns the user store view of db
func (db *DB) Users() *Users { return &Users{db: db} }

// Activities returns a copy of every recorded activity
func (db *DB) Activities() []model.UserActivity {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]model.UserActivity(nil), db.activities...)
}

// Course returns the stored course, bypassing the store API
func (db *DB) Course(id uint) (model.Course, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.courses[id]
	return cloneCourse(c), ok
}

// Review returns the stored review, bypassing the store API
func (db *DB) Review(id uint) (model.Review, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.reviews[id]
	return cloneReview(r), ok
}

// User returns the stored user, bypassing the store API
func (db *DB) User(id uint) (model.User, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	return u, ok
}

// PutCourse stores a course as is, assigning an id when it has none
func (db *DB) PutCourse(c model.Course) model.Course {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.ID == 0 {
		db.nextCourse++
		c.ID = db.nextCourse
	} else if c.ID > db.nextCourse {
		db.nextCourse = c.ID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.tick()
	}
	db.courses[c.ID] = cloneCourse(c)
	return c
}

// PutReview stores a review as is, assigning an id when it has none
func (db *DB) PutReview(r model.Review) model.Review {
	db.mu.Lock()
	defer db.mu.Unlock()
	if r.ID == 0 {
		db.nextReview++
		r.ID = db.nextReview
	} else if r.ID > db.nextReview {
		db.nextReview = r.ID
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = db.tick()
	}
	r.User, r.Course = nil, nil
	db.reviews[r.ID] = cloneReview(r)
	return r
}

// PutUser stores a user as is, assigning an id when it has none
func (db *DB) PutUser(u model.User) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID == 0 {
		db.nextUser++
		u.ID = db.nextUser
	} else if u.ID > db.nextUser {
		db.nextUser = u.ID
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = db.tick()
	}
	db.users[u.ID] = u
	return u
}

// Courses implements services.CourseStore
type Courses struct{ db *DB }

var _ services.CourseStore = (*Courses)(nil)

func (s *Courses) GetByID(_ context.Context, id uint) (*model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.courses[id]
	if !ok {
		return nil, &services.NotFoundError{Resource: "course", ID: id}
	}
	c = cloneCourse(c)
	return &c, nil
}

func (s *Courses) GetActiveByID(ctx context.Context, id uint) (*model.Course, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, &services.NotFoundError{Resource: "course", ID: id}
	}
	return c, nil
}

func (s *Courses) GetByCourseNumber(_ context.Context, courseNumber int) (*model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.courses {
		if c.CourseNumber == courseNumber {
			c = cloneCourse(c)
			return &c, nil
		}
	}
	return nil, &services.NotFoundError{Resource: "course", ID: courseNumber}
}

func (s *Courses) Create(_ context.Context, course *model.Course) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.courses {
		if c.CourseNumber == course.CourseNumber {
			return fmt.Errorf("course: %w", services.ErrDuplicate)
		}
	}
	s.db.nextCourse++
	course.ID = s.db.nextCourse
	course.CreatedAt = s.db.tick()
	course.UpdatedAt = course.CreatedAt
	s.db.courses[course.ID] = cloneCourse(*course)
	return nil
}

func (s *Courses) Modify(_ context.Context, courseID uint, fn services.CourseUpdate) (*model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.courses[courseID]
	if !ok {
		return nil, &services.NotFoundError{Resource: "course", ID: courseID}
	}
	c = cloneCourse(c)
	if err := fn(&c); err != nil {
		return nil, err
	}
	for id, other := range s.db.courses {
		if id != courseID && other.CourseNumber == c.CourseNumber {
			return nil, fmt.Errorf("course: %w", services.ErrDuplicate)
		}
	}
	c.UpdatedAt = s.db.tick()
	s.db.courses[courseID] = cloneCourse(c)
	return &c, nil
}

func (s *Courses) List(_ context.Context, filter services.CourseFilter) ([]model.Course, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matched []model.Course
	for _, c := range s.db.courses {
		if courseMatches(c, filter) {
			matched = append(matched, cloneCourse(c))
		}
	}
	sortCourses(matched, filter.SortBy)

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.Limit), total, nil
}

func courseMatches(c model.Course, f services.CourseFilter) bool {
	if !c.IsActive {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	switch f.Goal {
	case services.CourseGoalTrap:
		if !c.Flags.IsTrapCourse {
			return false
		}
	case services.CourseGoalNoExam:
		if !c.Flags.HasNoExam {
			return false
		}
	case services.CourseGoalPopular:
		if !c.Flags.IsPopular {
			return false
		}
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		if strings.Contains(strings.ToLower(c.Name), search) || strings.Contains(strings.ToLower(string(c.Type)), search) {
			return true
		}
		for _, t := range c.Teachers {
			if strings.Contains(strings.ToLower(t.Name), search) {
				return true
			}
		}
		return false
	}
	return true
}

func sortCourses(courses []model.Course, by services.CourseSort) {
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i].Statistics, courses[j].Statistics
		switch by {
		case services.CourseSortChill:
			if a.ChillScore != b.ChillScore {
				return a.ChillScore > b.ChillScore
			}
		case services.CourseSortReviews:
			if a.TotalReviews != b.TotalReviews {
				return a.TotalReviews > b.TotalReviews
			}
		case services.CourseSortRatingAsc:
			if a.AvgRating != b.AvgRating {
				return a.AvgRating < b.AvgRating
			}
		default:
			if a.AvgRating != b.AvgRating {
				return a.AvgRating > b.AvgRating
			}
		}
		return courses[i].ID < courses[j].ID
	})
}

func (s *Courses) ReviewAggregate(_ context.Context, courseID uint) (services.ReviewAggregate, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.aggregate(courseID), nil
}

func (s *Courses) UpdateStatistics(_ context.Context, courseID uint, fn services.StatisticsUpdate) (*model.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.StatisticsCalls++
	if s.db.StatisticsFailures > 0 {
		s.db.StatisticsFailures--
		return nil, services.ErrConsistencyRetry
	}

	c, ok := s.db.courses[courseID]
	if !ok {
		return nil, &services.NotFoundError{Resource: "course", ID: courseID}
	}
	c = cloneCourse(c)
	fn(&c, s.db.aggregate(courseID))
	c.UpdatedAt = s.db.tick()
	s.db.courses[courseID] = cloneCourse(c)
	return &c, nil
}

// aggregate mirrors the SQL aggregate: AVG skips NULLs and is NULL over no rows
func (db *DB) aggregate(courseID uint) services.ReviewAggregate {
	var (
		agg                                 services.ReviewAggregate
		teaching, content, difficulty, work mean
		hours, chill                        mean
	)
	for _, r := range db.reviews {
		if r.CourseID != courseID || !r.IsApproved || r.DeletedAt.Valid {
			continue
		}
		agg.TotalReviews++
		agg.SumOverall += int64(r.Rating.Overall)
		if r.WouldRecommend {
			agg.RecommendCount++
		}
		teaching.addInt(r.Rating.Teaching)
		content.addInt(r.Rating.Content)
		difficulty.addInt(r.Rating.Difficulty)
		work.addInt(r.Rating.Workload)
		hours.add(r.StudyInfo.StudyHoursPerWeek)
		v := r.ChillScore
		chill.add(&v)
	}
	agg.AvgTeaching = teaching.value()
	agg.AvgContent = content.value()
	agg.AvgDifficulty = difficulty.value()
	agg.AvgWorkload = work.value()
	agg.AvgStudyHours = hours.value()
	agg.AvgChillScore = chill.value()
	return agg
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v != nil {
		m.sum += *v
		m.n++
	}
}

func (m *mean) addInt(v *int) {
	if v != nil {
		f := float64(*v)
		m.add(&f)
	}
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

// Reviews implements services.ReviewStore
type Reviews struct{ db *DB }

var _ services.ReviewStore = (*Reviews)(nil)

func (s *Reviews) Create(_ context.Context, review *model.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	// idx_reviews_user_course is not partial, soft-deleted rows still count
	for _, r := range s.db.reviews {
		if r.UserID == review.UserID && r.CourseID == review.CourseID {
			return fmt.Errorf("review: %w", services.ErrDuplicate)
		}
	}
	s.db.nextReview++
	review.ID = s.db.nextReview
	review.CreatedAt = s.db.tick()
	review.UpdatedAt = review.CreatedAt

	stored := cloneReview(*review)
	stored.User, stored.Course = nil, nil
	s.db.reviews[review.ID] = stored
	return nil
}

func (s *Reviews) GetByID(_ context.Context, id uint) (*model.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok || r.DeletedAt.Valid {
		return nil, &services.NotFoundError{Resource: "review", ID: id}
	}
	r = cloneReview(r)
	return &r, nil
}

func (s *Reviews) SaveEdit(_ context.Context, review *model.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.reviews[review.ID]
	if !ok || stored.DeletedAt.Valid {
		return &services.NotFoundError{Resource: "review", ID: review.ID}
	}
	edited := cloneReview(*review)
	stored.Rating = edited.Rating
	stored.Body = edited.Body
	stored.StudyInfo = edited.StudyInfo
	stored.WouldRecommend = edited.WouldRecommend
	stored.ChillScore = edited.ChillScore
	stored.IsEdited = edited.IsEdited
	stored.EditHistory = edited.EditHistory
	stored.UpdatedAt = s.db.tick()
	review.UpdatedAt = stored.UpdatedAt
	s.db.reviews[review.ID] = stored
	return nil
}

func (s *Reviews) List(_ context.Context, filter services.ReviewFilter) ([]model.Review, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matched []model.Review
	for _, r := range s.db.reviews {
		if r.DeletedAt.Valid {
			continue
		}
		if filter.CourseID != 0 && r.CourseID != filter.CourseID {
			continue
		}
		if filter.UserID != 0 && r.UserID != filter.UserID {
			continue
		}
		if filter.Approved != nil && r.IsApproved != *filter.Approved {
			continue
		}
		r = cloneReview(r)
		if u, ok := s.db.users[r.UserID]; ok {
			author := model.User{ID: u.ID, Username: u.Username, Profile: u.Profile}
			r.User = &author
		}
		if filter.WithCourse {
			if c, ok := s.db.courses[r.CourseID]; ok {
				c = cloneCourse(c)
				r.Course = &c
			}
		}
		matched = append(matched, r)
	}
	sortReviews(matched, filter.SortBy)

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.Limit), total, nil
}

func sortReviews(reviews []model.Review, by services.ReviewSort) {
	sort.SliceStable(reviews, func(i, j int) bool {
		a, b := reviews[i], reviews[j]
		switch by {
		case services.ReviewSortHelpful:
			if a.HelpfulVotes != b.HelpfulVotes {
				return a.HelpfulVotes > b.HelpfulVotes
			}
		case services.ReviewSortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (s *Reviews) MarkApproved(_ context.Context, id uint, moderatorID uint, notes string, at time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok || r.IsApproved {
		return false, nil
	}
	r.IsApproved = true
	r.ModeratedAt = &at
	if moderatorID != 0 {
		m := moderatorID
		r.ModeratedBy = &m
	}
	if notes != "" {
		r.ModerationNotes = notes
	}
	s.db.reviews[id] = r
	return true, nil
}

func (s *Reviews) SetFlags(_ context.Context, id uint, reasons []model.FlagReason) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok {
		return &services.NotFoundError{Resource: "review", ID: id}
	}
	r.FlaggedReasons = append([]model.FlagReason(nil), reasons...)
	s.db.reviews[id] = r
	return nil
}

func (s *Reviews) Increment(_ context.Context, id uint, counter services.ReviewCounter) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok {
		return &services.NotFoundError{Resource: "review", ID: id}
	}
	switch counter {
	case services.CounterHelpful:
		r.HelpfulVotes++
	case services.CounterUnhelpful:
		r.UnhelpfulVotes++
	case services.CounterReports:
		r.Reports++
	default:
		return fmt.Errorf("unknown review counter %q", counter)
	}
	s.db.reviews[id] = r
	return nil
}

// Users implements services.UserStore and services.AccountStore
type Users struct{ db *DB }

var (
	_ services.UserStore    = (*Users)(nil)
	_ services.AccountStore = (*Users)(nil)
)

func (s *Users) GetByID(_ context.Context, id uint) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, &services.NotFoundError{Resource: "user", ID: id}
	}
	return &u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, &services.NotFoundError{Resource: "user", ID: email}
}

func (s *Users) Create(_ context.Context, user *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == user.Email || u.Username == user.Username {
			return fmt.Errorf("user: %w", services.ErrDuplicate)
		}
	}
	s.db.nextUser++
	user.ID = s.db.nextUser
	user.CreatedAt = s.db.tick()
	user.UpdatedAt = user.CreatedAt
	s.db.users[user.ID] = *user
	return nil
}

func (s *Users) Save(_ context.Context, user *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[user.ID]; !ok {
		return &services.NotFoundError{Resource: "user", ID: user.ID}
	}
	user.UpdatedAt = s.db.tick()
	s.db.users[user.ID] = *user
	return nil
}

func (s *Users) SetEmailVerified(_ context.Context, id uint, verified bool) error {
	return s.update(id, func(u *model.User) { u.IsEmailVerified = verified })
}

func (s *Users) TouchLastLogin(_ context.Context, id uint, at time.Time) error {
	return s.update(id, func(u *model.User) { u.Activity.LastLogin = &at })
}

func (s *Users) IncrementReviewsSubmitted(_ context.Context, id uint) error {
	return s.update(id, func(u *model.User) { u.Activity.ReviewsSubmitted++ })
}

func (s *Users) RecordActivity(_ context.Context, activity *model.UserActivity) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextActivity++
	activity.ID = s.db.nextActivity
	activity.CreatedAt = s.db.tick()
	s.db.activities = append(s.db.activities, *activity)
	return nil
}

func (s *Users) update(id uint, fn func(*model.User)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return &services.NotFoundError{Resource: "user", ID: id}
	}
	fn(&u)
	s.db.users[id] = u
	return nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func cloneCourse(c model.Course) model.Course {
	c.Prerequisites = append(c.Prerequisites[:0:0], c.Prerequisites...)
	c.Teachers = append(c.Teachers[:0:0], c.Teachers...)
	c.Tags = append(c.Tags[:0:0], c.Tags...)
	c.Reviews = nil
	return c
}

func cloneReview(r model.Review) model.Review {
	r.Body.Pros = append(r.Body.Pros[:0:0], r.Body.Pros...)
	r.Body.Cons = append(r.Body.Cons[:0:0], r.Body.Cons...)
	r.Body.Tips = append(r.Body.Tips[:0:0], r.Body.Tips...)
	r.FlaggedReasons = append(r.FlaggedReasons[:0:0], r.FlaggedReasons...)
	r.EditHistory = append(r.EditHistory[:0:0], r.EditHistory...)
	return r
}
