package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/auth"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job names
const (
	JobCleanupTokenBlacklist = "cleanup_token_blacklist"
	JobExpireNewCourses      = "expire_new_courses"
	JobCleanupActivities     = "cleanup_user_activities"
	JobCleanupCronLogs       = "cleanup_cron_logs"
)

// JobRefreshStatistics is never scheduled. Statistics only change on an
// approval transition; operators run it with cmd/cronjob after a recompute
// gave up.
const JobRefreshStatistics = "refresh_course_statistics"

// Retention windows
const (
	NewCourseWindow   = 180 * 24 * time.Hour
	ActivityRetention = 90 * 24 * time.Hour
	CronLogRetention  = 30 * 24 * time.Hour
)

// CronManager manages all scheduled maintenance jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	blacklist *auth.BlacklistService
	stats     *services.CourseStatsService
	log       *logger.Logger
	now       func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, stats *services.CourseStatsService, log *logger.Logger) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:      c,
		db:        db,
		blacklist: auth.NewBlacklistService(db),
		stats:     stats,
		log:       log,
		now:       time.Now,
	}
}

// Start registers every job and starts the scheduler
func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info("Cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("Cron jobs stopped")
}

type job struct {
	name     string
	schedule string
	timeout  time.Duration
	run      func(ctx context.Context) (string, error)
}

func (m *CronManager) jobs() []job {
	return []job{
		{JobCleanupTokenBlacklist, "0 0 * * * *", 5 * time.Minute, m.CleanupTokenBlacklist},
		{JobExpireNewCourses, "0 30 3 * * *", 5 * time.Minute, m.ExpireNewCourses},
		{JobCleanupActivities, "0 0 2 * * *", 10 * time.Minute, m.CleanupUserActivities},
		{JobCleanupCronLogs, "0 0 5 * * 0", 5 * time.Minute, m.CleanupCronLogs},
	}
}

// manualJobs run only through RunNow
func (m *CronManager) manualJobs() []job {
	return []job{
		{JobRefreshStatistics, "", 30 * time.Minute, m.RefreshCourseStatistics},
	}
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	for _, j := range m.jobs() {
		j := j
		if _, err := m.cron.AddFunc(j.schedule, func() { _ = m.runJob(j) }); err != nil {
			return err
		}
	}
	return nil
}

// RunNow runs a job by name outside its schedule. It reports false when no
// job has that name.
func (m *CronManager) RunNow(name string) (bool, error) {
	for _, j := range append(m.jobs(), m.manualJobs()...) {
		if j.name == name {
			return true, m.runJob(j)
		}
	}
	return false, nil
}

func (m *CronManager) runJob(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	entry := m.logJobStart(j.name)
	message, err := j.run(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return err
	}
	m.logJobComplete(entry, message)
	return nil
}

func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Info("Cron job started", "job", jobName)

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusRunning,
		StartedAt: m.now(),
		Metadata:  datatypes.JSON(`{}`),
	}
	if err := m.db.Create(entry).Error; err != nil {
		m.log.Warn("Failed to record cron job start", "job", jobName, "error", err)
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string) {
	m.log.Info("Cron job completed", "job", entry.JobName, "message", message)
	m.finish(entry, map[string]interface{}{
		"status":  model.CronStatusCompleted,
		"message": message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	m.log.Error("Cron job failed", "job", entry.JobName, "error", err)
	m.finish(entry, map[string]interface{}{
		"status":    model.CronStatusFailed,
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finish(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	done := m.now()
	updates["completed_at"] = done
	updates["duration"] = done.Sub(entry.StartedAt).Milliseconds()
	if err := m.db.Model(entry).Updates(updates).Error; err != nil {
		m.log.Warn("Failed to record cron job result", "job", entry.JobName, "error", err)
	}
}
