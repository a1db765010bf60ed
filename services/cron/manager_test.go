package cron

import (
	"testing"

	"github.com/sahilchouksey/course-review-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterJobs(t *testing.T) {
	m := NewCronManager(nil, nil, logger.NewNop())
	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), len(m.jobs()))
}

func TestJobNamesAreUnique(t *testing.T) {
	m := NewCronManager(nil, nil, logger.NewNop())
	seen := map[string]bool{}
	for _, j := range append(m.jobs(), m.manualJobs()...) {
		assert.False(t, seen[j.name], "duplicate job %s", j.name)
		seen[j.name] = true
		assert.Positive(t, j.timeout)
	}
	found, err := m.RunNow("no_such_job")
	assert.False(t, found)
	assert.NoError(t, err)
}

func TestStatisticsRefreshIsNotScheduled(t *testing.T) {
	m := NewCronManager(nil, nil, logger.NewNop())
	for _, j := range m.jobs() {
		assert.NotEqual(t, JobRefreshStatistics, j.name)
		assert.NotEmpty(t, j.schedule)
	}

	manual := m.manualJobs()
	require.Len(t, manual, 1)
	assert.Equal(t, JobRefreshStatistics, manual[0].name)
	assert.Empty(t, manual[0].schedule)
}
