package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/xray/pkg/logger"
)

type noopJob struct {
	name string
}

func (j *noopJob) Name() string                  { return j.name }
func (j *noopJob) Schedule() string              { return "0 0 3 * * *" }
func (j *noopJob) Run(ctx context.Context) error { return nil }

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(&noopJob{name: "refresh"}))
	err := s.AddJob(&noopJob{name: "refresh"})
	assert.Error(t, err)

	assert.Equal(t, []string{"refresh"}, s.GetAllJobs())
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop())

	bad := &badScheduleJob{}
	assert.Error(t, s.AddJob(bad))
}

type badScheduleJob struct{}

func (j *badScheduleJob) Name() string                  { return "bad" }
func (j *badScheduleJob) Schedule() string              { return "not a schedule" }
func (j *badScheduleJob) Run(ctx context.Context) error { return nil }

func TestRunJobUnknownName(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < 110; i++ {
		h.AddResult(JobResult{JobName: fmt.Sprintf("r%d", i), Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100, "history is capped")

	latest := h.GetLatestResults(3)
	require.Len(t, latest, 3)
	assert.Equal(t, "r109", latest[2].JobName)

	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.01)
}
