package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/jobs"
	"vitrine/internal/ratelimit"
	"vitrine/internal/testsupport"
)

type countingJob struct {
	runs  atomic.Int32
	err   error
	panic bool
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestScheduler(t *testing.T) {
	t.Run("runs jobs until stopped", func(t *testing.T) {
		s := jobs.NewScheduler(testsupport.GetLogger())
		job := &countingJob{}
		s.Every(5*time.Millisecond, job)

		require.NoError(t, s.Start())
		assert.True(t, s.IsRunning())
		require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

		s.Stop()
		assert.False(t, s.IsRunning())
		after := job.runs.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, after, job.runs.Load())
	})

	t.Run("survives failing and panicking jobs", func(t *testing.T) {
		s := jobs.NewScheduler(testsupport.GetLogger())
		failing := &countingJob{err: errors.New("db locked")}
		panicking := &countingJob{panic: true}

		s.RunNow(failing)
		s.RunNow(panicking)
		s.RunNow(panicking)

		assert.Equal(t, int32(1), failing.runs.Load())
		assert.Equal(t, int32(2), panicking.runs.Load())
	})

	t.Run("ignores invalid intervals", func(t *testing.T) {
		s := jobs.NewScheduler(testsupport.GetLogger())
		job := &countingJob{}
		s.Every(0, job)
		require.NoError(t, s.Start())
		time.Sleep(20 * time.Millisecond)
		s.Stop()
		assert.Equal(t, int32(0), job.runs.Load())
	})
}

func TestRateLimitSweepJob(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	pageViews := ratelimit.NewMemory(ratelimit.Policy{Max: 60, Window: time.Minute}, ratelimit.WithClock(clock))
	clicks := ratelimit.NewMemory(ratelimit.Policy{Max: 30, Window: time.Minute}, ratelimit.WithClock(clock))

	ctx := context.Background()
	_, _ = pageViews.Allow(ctx, "page_view:1.1.1.1")
	_, _ = clicks.Allow(ctx, "whatsapp_click:1.1.1.1")
	now = now.Add(30 * time.Second)
	_, _ = clicks.Allow(ctx, "whatsapp_click:2.2.2.2")

	job := jobs.NewRateLimitSweepJob(testsupport.GetLogger(), pageViews, clicks)
	assert.Equal(t, "ratelimit_sweep", job.Name())

	now = now.Add(45 * time.Second)
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 0, pageViews.Len())
	assert.Equal(t, 1, clicks.Len())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, job.Run(cancelled), context.Canceled)
}
