package store

import (
	"context"
	"errors"

	"github.com/logboard/api/internal/model"
)

// ErrNotFound is returned when no record exists for a job id
var ErrNotFound = errors.New("record not found")

// StatsStore persists terminal job outcomes. Insert upserts on
// job_id so a retried job leaves exactly one record; records are
// never updated or deleted through any other path.
type StatsStore interface {
	Insert(ctx context.Context, record *model.LogRecord) error
	GetByJobID(ctx context.Context, jobID string) (*model.LogRecord, error)
	// ListAll returns every record ordered by processed_at descending
	ListAll(ctx context.Context) ([]model.LogRecord, error)
}
