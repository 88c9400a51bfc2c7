package model

import "time"

// RecordStatus is the terminal outcome stored with a LogRecord
type RecordStatus string

const (
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusFailed    RecordStatus = "failed"
)

// LogRecord is the persisted terminal outcome of one job attempt.
// Exactly one record exists per job id: the store upserts on job_id,
// so a failed stub from an earlier attempt is superseded by the
// record of a later successful attempt.
type LogRecord struct {
	JobID        string       `json:"job_id"`
	FileID       string       `json:"file_id"`
	UserID       string       `json:"user_id"`
	JobCreatedAt time.Time    `json:"job_created_at"`
	ProcessedAt  time.Time    `json:"processed_at"`
	TotalLines   int          `json:"total_lines"`
	ErrorCount   int          `json:"error_count"`
	Errors       []LogError   `json:"errors"`
	Keywords     []KeywordHit `json:"keywords"`
	IPs          []string     `json:"ips"`
	Status       RecordStatus `json:"status"`
}
