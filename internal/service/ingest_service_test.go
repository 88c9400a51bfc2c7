package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logboard/api/internal/config"
	"github.com/logboard/api/internal/model"
)

func newTestService(t *testing.T) *IngestService {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.IngestConfig{
		MaxAttempts:       3,
		PriorityThreshold: 1 << 20,
		JobTimeout:        10 * time.Minute,
	}
	return NewIngestService(rdb, nil, nil, cfg)
}

func seedJob(t *testing.T, svc *IngestService, job *model.Job) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.saveJob(ctx, job))
	require.NoError(t, svc.redis.SAdd(ctx, userJobsKey(job.UserID), job.ID).Err())
}

func TestQueueForSize(t *testing.T) {
	threshold := int64(1 << 20)

	tests := []struct {
		name         string
		fileSize     int64
		wantQueue    string
		wantPriority int
	}{
		{"small file", 500 * 1024, QueueSmall, model.PrioritySmall},
		{"large file", 2 << 20, QueueLarge, model.PriorityLarge},
		{"exactly at threshold", 1 << 20, QueueLarge, model.PriorityLarge},
		{"just under threshold", (1 << 20) - 1, QueueSmall, model.PrioritySmall},
		{"empty file", 0, QueueSmall, model.PrioritySmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue, priority := QueueForSize(tt.fileSize, threshold)
			assert.Equal(t, tt.wantQueue, queue)
			assert.Equal(t, tt.wantPriority, priority)
		})
	}
}

func TestGetJobNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMarkActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedJob(t, svc, &model.Job{
		ID:         "job-1",
		UserID:     "user-1",
		State:      model.JobStateWaiting,
		EnqueuedAt: time.Now(),
	})

	require.NoError(t, svc.MarkActive(ctx, "job-1"))

	job, err := svc.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateActive, job.State)
	assert.Equal(t, 1, job.Attempts)
	require.NotNil(t, job.StartedAt)

	// A retry bumps attempts but keeps the original start time
	firstStart := *job.StartedAt
	require.NoError(t, svc.MarkActive(ctx, "job-1"))

	job, err = svc.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, firstStart.Unix(), job.StartedAt.Unix())
}

func TestUpdateProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedJob(t, svc, &model.Job{
		ID:         "job-1",
		UserID:     "user-1",
		State:      model.JobStateActive,
		EnqueuedAt: time.Now(),
	})

	require.NoError(t, svc.UpdateProgress(ctx, "job-1", 200, 3))

	job, err := svc.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 200, job.ProcessedLines)
	assert.Equal(t, 3, job.ErrorCount)
	assert.Equal(t, model.JobStateActive, job.State)
}

func TestMarkCompleted(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	errMsg := "transient"
	seedJob(t, svc, &model.Job{
		ID:         "job-1",
		UserID:     "user-1",
		State:      model.JobStateActive,
		Error:      &errMsg,
		EnqueuedAt: time.Now(),
	})

	require.NoError(t, svc.MarkCompleted(ctx, "job-1", 1000, 12))

	job, err := svc.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateCompleted, job.State)
	assert.Equal(t, 1000, job.ProcessedLines)
	assert.Equal(t, 12, job.ErrorCount)
	assert.Nil(t, job.Error)
	assert.NotNil(t, job.CompletedAt)
}

func TestMarkFailedRetryable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedJob(t, svc, &model.Job{
		ID:         "job-1",
		UserID:     "user-1",
		State:      model.JobStateActive,
		EnqueuedAt: time.Now(),
	})

	require.NoError(t, svc.MarkFailed(ctx, "job-1", "fetch failed", false))

	job, err := svc.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateWaiting, job.State)
	require.NotNil(t, job.Error)
	assert.Equal(t, "fetch failed", *job.Error)
	assert.Nil(t, job.CompletedAt)
}

func TestMarkFailedFinal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedJob(t, svc, &model.Job{
		ID:         "job-1",
		UserID:     "user-1",
		State:      model.JobStateActive,
		EnqueuedAt: time.Now(),
	})

	require.NoError(t, svc.MarkFailed(ctx, "job-1", "fetch failed", true))

	job, err := svc.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateFailed, job.State)
	require.NotNil(t, job.Error)
	assert.NotNil(t, job.CompletedAt)
}

func TestQueueStatusForUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	states := []model.JobState{
		model.JobStateWaiting,
		model.JobStateWaiting,
		model.JobStateActive,
		model.JobStateCompleted,
		model.JobStateFailed,
	}
	for i, state := range states {
		seedJob(t, svc, &model.Job{
			ID:         "job-" + string(rune('a'+i)),
			UserID:     "user-1",
			State:      state,
			EnqueuedAt: time.Now(),
		})
	}

	// Another user's job must not leak into the counts
	seedJob(t, svc, &model.Job{
		ID:         "job-other",
		UserID:     "user-2",
		State:      model.JobStateWaiting,
		EnqueuedAt: time.Now(),
	})

	status, err := svc.QueueStatusForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Waiting)
	assert.Equal(t, 1, status.Active)
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 1, status.Failed)
}

func TestQueueStatusForUserEmpty(t *testing.T) {
	svc := newTestService(t)

	status, err := svc.QueueStatusForUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, &model.QueueStatusResponse{}, status)
}

func TestListJobsForUserNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		seedJob(t, svc, &model.Job{
			ID:         id,
			UserID:     "user-1",
			State:      model.JobStateCompleted,
			EnqueuedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	jobs, err := svc.ListJobsForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, "mid", jobs[1].ID)
	assert.Equal(t, "old", jobs[2].ID)
}
