package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/course-review-api/model"
)

// CleanupTokenBlacklist removes blacklist entries whose tokens have expired
func (m *CronManager) CleanupTokenBlacklist(ctx context.Context) (string, error) {
	removed, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("cleanup token blacklist: %w", err)
	}
	return fmt.Sprintf("Removed %d expired tokens", removed), nil
}

// RefreshCourseStatistics recomputes every active course. It is an operator
// tool for courses whose recompute failed after a review was stored.
func (m *CronManager) RefreshCourseStatistics(ctx context.Context) (string, error) {
	var ids []uint
	if err := m.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("is_active = ?", true).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return "", fmt.Errorf("list courses: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := m.stats.Recompute(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("course %d: %w", id, err))
		}
	}

	message := fmt.Sprintf("Recomputed %d courses, %d failed", len(ids)-len(errs), len(errs))
	if len(errs) > 0 {
		return message, errors.Join(errs...)
	}
	return message, nil
}

// ExpireNewCourses clears the isNew flag of courses older than NewCourseWindow
func (m *CronManager) ExpireNewCourses(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-NewCourseWindow)
	res := m.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("flag_is_new = ? AND created_at < ?", true, cutoff).
		UpdateColumn("flag_is_new", false)
	if res.Error != nil {
		return "", fmt.Errorf("expire new courses: %w", res.Error)
	}
	return fmt.Sprintf("Cleared isNew on %d courses", res.RowsAffected), nil
}

// CleanupUserActivities deletes activity log rows older than ActivityRetention
func (m *CronManager) CleanupUserActivities(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-ActivityRetention)
	res := m.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.UserActivity{})
	if res.Error != nil {
		return "", fmt.Errorf("cleanup user activities: %w", res.Error)
	}
	return fmt.Sprintf("Deleted %d activities", res.RowsAffected), nil
}

// CleanupCronLogs deletes job logs older than CronLogRetention
func (m *CronManager) CleanupCronLogs(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-CronLogRetention)
	res := m.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if res.Error != nil {
		return "", fmt.Errorf("cleanup cron logs: %w", res.Error)
	}
	return fmt.Sprintf("Deleted %d job logs", res.RowsAffected), nil
}
