package model

import "time"

// JobState is the queue-side lifecycle state of an ingestion job
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Priority tiers assigned at enqueue time from file size.
// Smaller files get the numerically higher-precedence tier.
const (
	PrioritySmall = 1
	PriorityLarge = 2
)

// Job represents one unit of asynchronous log-processing work.
// Owned by the queue; workers mutate state only through IngestService.
type Job struct {
	ID          string     `json:"id"`
	FileURL     string     `json:"fileUrl"`
	FileID      string     `json:"fileId"`
	UserID      string     `json:"userId"`
	FileSize    int64      `json:"fileSize"`
	Priority    int        `json:"priority"`
	State       JobState   `json:"state"`
	Attempts    int        `json:"attempts"`
	Error       *string    `json:"error,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueuedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Last reported progress, updated in batches by the worker
	ProcessedLines int `json:"processedLines"`
	ErrorCount     int `json:"errorCount"`
}

// LogJobPayload is the asynq task payload for a log-processing job
type LogJobPayload struct {
	JobID      string    `json:"jobId"`
	FileURL    string    `json:"fileUrl"`
	FileID     string    `json:"fileId"`
	UserID     string    `json:"userId"`
	FileSize   int64     `json:"fileSize"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
