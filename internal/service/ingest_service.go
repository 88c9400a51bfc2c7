package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/logboard/api/internal/config"
	"github.com/logboard/api/internal/model"
)

const TaskTypeLogProcess = "log:process"

// Queue names. Small files are dispatched strictly ahead of large
// ones when both have waiting jobs.
const (
	QueueSmall = "small"
	QueueLarge = "large"
)

// ErrJobNotFound is returned when no job record exists for an id
var ErrJobNotFound = fmt.Errorf("job not found")

// IngestService owns job lifecycle bookkeeping. Job records live in
// Redis under job:<id>; a per-user set indexes a user's job ids.
// Workers never touch the records directly.
type IngestService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	inspector   *asynq.Inspector
	cfg         *config.IngestConfig
}

func NewIngestService(redisClient *redis.Client, asynqClient *asynq.Client, inspector *asynq.Inspector, cfg *config.IngestConfig) *IngestService {
	return &IngestService{
		redis:       redisClient,
		asynqClient: asynqClient,
		inspector:   inspector,
		cfg:         cfg,
	}
}

// QueueForSize picks the priority tier for a file size
func QueueForSize(fileSize, threshold int64) (queue string, priority int) {
	if fileSize < threshold {
		return QueueSmall, model.PrioritySmall
	}
	return QueueLarge, model.PriorityLarge
}

// Enqueue registers a new job and hands it to the queue. Returns the
// queue-assigned job id.
func (s *IngestService) Enqueue(ctx context.Context, userID string, req *model.EnqueueRequest) (*model.Job, error) {
	jobID := uuid.New().String()

	enqueuedAt := req.Timestamp
	if enqueuedAt.IsZero() {
		enqueuedAt = time.Now()
	}

	queue, priority := QueueForSize(req.FileSize, s.cfg.PriorityThreshold)

	job := &model.Job{
		ID:         jobID,
		FileURL:    req.FileURL,
		FileID:     req.FileID,
		UserID:     userID,
		FileSize:   req.FileSize,
		Priority:   priority,
		State:      model.JobStateWaiting,
		EnqueuedAt: enqueuedAt,
	}

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	if err := s.redis.SAdd(ctx, userJobsKey(userID), jobID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index job: %w", err)
	}

	payload, err := json.Marshal(model.LogJobPayload{
		JobID:      jobID,
		FileURL:    req.FileURL,
		FileID:     req.FileID,
		UserID:     userID,
		FileSize:   req.FileSize,
		EnqueuedAt: enqueuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeLogProcess, payload)
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(queue),
		asynq.MaxRetry(s.cfg.MaxAttempts-1),
		asynq.Timeout(s.cfg.JobTimeout),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return job, nil
}

// GetJob fetches the queue's job record
func (s *IngestService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	return s.getJob(ctx, jobID)
}

// MarkActive transitions a claimed job to active and bumps its
// attempt counter (called by the worker at the start of each attempt)
func (s *IngestService) MarkActive(ctx context.Context, jobID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.State = model.JobStateActive
	job.Attempts++
	if job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// UpdateProgress records the worker's latest batched line counts
func (s *IngestService) UpdateProgress(ctx context.Context, jobID string, processedLines, errorCount int) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.ProcessedLines = processedLines
	job.ErrorCount = errorCount

	return s.saveJob(ctx, job)
}

// MarkCompleted transitions a job to its terminal completed state
func (s *IngestService) MarkCompleted(ctx context.Context, jobID string, processedLines, errorCount int) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.State = model.JobStateCompleted
	job.ProcessedLines = processedLines
	job.ErrorCount = errorCount
	job.Error = nil
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// MarkFailed records a failed attempt. While attempts remain the job
// goes back to waiting for the queue's backoff retry; once exhausted
// it stays failed permanently.
func (s *IngestService) MarkFailed(ctx context.Context, jobID, errMsg string, final bool) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Error = &errMsg
	if final {
		job.State = model.JobStateFailed
		now := time.Now()
		job.CompletedAt = &now
	} else {
		job.State = model.JobStateWaiting
	}

	return s.saveJob(ctx, job)
}

// QueueStatusForUser counts the user's jobs by lifecycle state
func (s *IngestService) QueueStatusForUser(ctx context.Context, userID string) (*model.QueueStatusResponse, error) {
	jobIDs, err := s.redis.SMembers(ctx, userJobsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user jobs: %w", err)
	}

	status := &model.QueueStatusResponse{}
	for _, jobID := range jobIDs {
		job, err := s.getJob(ctx, jobID)
		if err != nil {
			// Records expire after retention; skip the gaps
			continue
		}
		switch job.State {
		case model.JobStateWaiting:
			status.Waiting++
		case model.JobStateActive:
			status.Active++
		case model.JobStateCompleted:
			status.Completed++
		case model.JobStateFailed:
			status.Failed++
		}
	}
	return status, nil
}

// QueueStatusGlobal sums per-state counts across both priority queues
func (s *IngestService) QueueStatusGlobal(ctx context.Context) (*model.QueueStatusResponse, error) {
	status := &model.QueueStatusResponse{}
	for _, queue := range []string{QueueSmall, QueueLarge} {
		info, err := s.inspector.GetQueueInfo(queue)
		if err != nil {
			// A queue that has never seen a job doesn't exist yet
			continue
		}
		status.Waiting += info.Pending
		status.Active += info.Active
		status.Completed += info.Completed
		status.Failed += info.Failed
	}
	return status, nil
}

// ListJobsForUser returns the user's job records, newest first
func (s *IngestService) ListJobsForUser(ctx context.Context, userID string) ([]model.Job, error) {
	jobIDs, err := s.redis.SMembers(ctx, userJobsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user jobs: %w", err)
	}

	jobs := make([]model.Job, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		job, err := s.getJob(ctx, jobID)
		if err != nil {
			continue
		}
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].EnqueuedAt.After(jobs[j].EnqueuedAt)
	})
	return jobs, nil
}

func (s *IngestService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, 24*time.Hour).Err()
}

func (s *IngestService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func userJobsKey(userID string) string {
	return fmt.Sprintf("user:%s:jobs", userID)
}
