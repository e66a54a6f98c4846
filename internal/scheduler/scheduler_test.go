package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	err      error
	runs     int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(_ context.Context) error {
	j.runs++
	return j.err
}

func testScheduler() *Scheduler {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}
	s := New(logger.New(cfg))
	s.maxRetries = 1
	s.retryDelay = time.Millisecond
	return s
}

func TestAddJob(t *testing.T) {
	s := testScheduler()
	job := &stubJob{name: "demo", schedule: "0 0 17 * * *"}

	require.NoError(t, s.AddJob(job))
	assert.Contains(t, s.GetAllJobs(), "demo")
}

func TestAddJobDuplicate(t *testing.T) {
	s := testScheduler()
	job := &stubJob{name: "demo", schedule: "0 0 17 * * *"}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job))
}

func TestAddJobBadSchedule(t *testing.T) {
	s := testScheduler()
	assert.Error(t, s.AddJob(&stubJob{name: "bad", schedule: "not-a-cron"}))
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := testScheduler()
	job := &stubJob{name: "demo", schedule: "0 0 17 * * *"}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("demo")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 1, job.runs)
}

func TestRunJobRetriesOnFailure(t *testing.T) {
	s := testScheduler()
	job := &stubJob{name: "failing", schedule: "0 0 17 * * *", err: fmt.Errorf("boom")}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("failing")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.Equal(t, "boom", history.Results[0].Error)

	// Initial attempt plus one retry
	assert.Equal(t, 2, job.runs)
}

func TestRunJobUnknown(t *testing.T) {
	s := testScheduler()
	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistoryCap(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "demo", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
}

func TestJobHistorySuccessRate(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.GetSuccessRate())

	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false})
	assert.InDelta(t, 2.0/3.0, h.GetSuccessRate(), 1e-9)
	assert.Len(t, h.GetFailedResults(), 1)
}

func TestJobHistoryLatestResults(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 5; i++ {
		h.AddResult(JobResult{JobName: fmt.Sprintf("run-%d", i)})
	}

	latest := h.GetLatestResults(2)
	require.Len(t, latest, 2)
	assert.Equal(t, "run-4", latest[1].JobName)

	assert.Empty(t, h.GetLatestResults(0))
}
