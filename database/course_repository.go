package database

import (
	"context"
	"strings"

	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CourseRepository implements services.CourseStore on PostgreSQL
type CourseRepository struct {
	db *gorm.DB
}

// NewCourseRepository creates a course repository
func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

var _ services.CourseStore = (*CourseRepository)(nil)

func (r *CourseRepository) GetByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).First(&course, id).Error
	if err != nil {
		return nil, translateError(err, "course", id)
	}
	return &course, nil
}

func (r *CourseRepository) GetActiveByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&course, id).Error
	if err != nil {
		return nil, translateError(err, "course", id)
	}
	return &course, nil
}

func (r *CourseRepository) GetByCourseNumber(ctx context.Context, courseNumber int) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).Where("course_id = ?", courseNumber).First(&course).Error
	if err != nil {
		return nil, translateError(err, "course", courseNumber)
	}
	return &course, nil
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(course).Error
	return translateError(err, "course", course.CourseNumber)
}

func (r *CourseRepository) Modify(ctx context.Context, courseID uint, fn services.CourseUpdate) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&course, courseID).Error; err != nil {
			return translateError(err, "course", courseID)
		}
		if err := fn(&course); err != nil {
			return err
		}
		return translateError(tx.Omit(clause.Associations).Save(&course).Error, "course", courseID)
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns one page of active courses and the total number of matches.
// The count and the page query run concurrently.
func (r *CourseRepository) List(ctx context.Context, filter services.CourseFilter) ([]model.Course, int64, error) {
	var (
		courses []model.Course
		total   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.filtered(gctx, filter).Count(&total).Error
	})
	g.Go(func() error {
		q := r.filtered(gctx, filter).Order(courseOrder(filter.SortBy)).Order("id ASC")
		if filter.Limit > 0 {
			q = q.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
		}
		return q.Find(&courses).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

func (r *CourseRepository) filtered(ctx context.Context, filter services.CourseFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Course{}).Where("is_active = ?", true)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + escapeLike(search) + "%"
		q = q.Where(
			"name ILIKE ? OR type ILIKE ? OR EXISTS (SELECT 1 FROM jsonb_array_elements(CASE WHEN jsonb_typeof(teachers) = 'array' THEN teachers ELSE '[]'::jsonb END) AS t WHERE t->>'name' ILIKE ?)",
			like, like, like,
		)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	switch filter.Goal {
	case services.CourseGoalTrap:
		q = q.Where("flag_is_trap_course = ?", true)
	case services.CourseGoalNoExam:
		q = q.Where("flag_has_no_exam = ?", true)
	case services.CourseGoalPopular:
		q = q.Where("flag_is_popular = ?", true)
	}
	return q
}

func courseOrder(sortBy services.CourseSort) string {
	switch sortBy {
	case services.CourseSortChill:
		return "stat_chill_score DESC"
	case services.CourseSortReviews:
		return "stat_total_reviews DESC"
	case services.CourseSortRatingAsc:
		return "stat_avg_rating ASC"
	default:
		return "stat_avg_rating DESC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// reviewAggregateRow receives the aggregate query; AVG over no rows is NULL
type reviewAggregateRow struct {
	TotalReviews   int64
	SumOverall     int64
	RecommendCount int64
	AvgTeaching    *float64
	AvgContent     *float64
	AvgDifficulty  *float64
	AvgWorkload    *float64
	AvgStudyHours  *float64
	AvgChillScore  *float64
}

const reviewAggregateSelect = `COUNT(*) AS total_reviews,
	COALESCE(SUM(rating_overall), 0) AS sum_overall,
	COALESCE(SUM(CASE WHEN would_recommend THEN 1 ELSE 0 END), 0) AS recommend_count,
	AVG(rating_teaching)::float8 AS avg_teaching,
	AVG(rating_content)::float8 AS avg_content,
	AVG(rating_difficulty)::float8 AS avg_difficulty,
	AVG(rating_workload)::float8 AS avg_workload,
	AVG(study_study_hours_per_week)::float8 AS avg_study_hours,
	AVG(chill_score)::float8 AS avg_chill_score`

func aggregateApproved(db *gorm.DB, courseID uint) (services.ReviewAggregate, error) {
	var row reviewAggregateRow
	err := db.Model(&model.Review{}).
		Select(reviewAggregateSelect).
		Where("course_id = ? AND is_approved = ?", courseID, true).
		Scan(&row).Error
	if err != nil {
		return services.ReviewAggregate{}, err
	}
	return services.ReviewAggregate{
		TotalReviews:   row.TotalReviews,
		SumOverall:     row.SumOverall,
		RecommendCount: row.RecommendCount,
		AvgTeaching:    row.AvgTeaching,
		AvgContent:     row.AvgContent,
		AvgDifficulty:  row.AvgDifficulty,
		AvgWorkload:    row.AvgWorkload,
		AvgStudyHours:  row.AvgStudyHours,
		AvgChillScore:  row.AvgChillScore,
	}, nil
}

func (r *CourseRepository) ReviewAggregate(ctx context.Context, courseID uint) (services.ReviewAggregate, error) {
	return aggregateApproved(r.db.WithContext(ctx), courseID)
}

// UpdateStatistics locks the course row with SELECT ... FOR UPDATE, so a
// second recompute of the same course waits and then sees the first one's
// result along with every review approved in the meantime.
func (r *CourseRepository) UpdateStatistics(ctx context.Context, courseID uint, fn services.StatisticsUpdate) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&course, courseID).Error; err != nil {
			return translateError(err, "course", courseID)
		}

		agg, err := aggregateApproved(tx, courseID)
		if err != nil {
			return err
		}

		fn(&course, agg)
		return tx.Omit(clause.Associations).Save(&course).Error
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}
