package service

import (
	"context"

	"github.com/logboard/api/internal/model"
	"github.com/logboard/api/internal/stats"
	"github.com/logboard/api/internal/store"
)

// StatsService answers dashboard queries over persisted log records
type StatsService struct {
	store store.StatsStore
}

func NewStatsService(statsStore store.StatsStore) *StatsService {
	return &StatsService{store: statsStore}
}

// GetByJobID fetches one record; callers map store.ErrNotFound to 404
func (s *StatsService) GetByJobID(ctx context.Context, jobID string) (*model.LogRecord, error) {
	return s.store.GetByJobID(ctx, jobID)
}

// ListAll returns every record, most recently processed first
func (s *StatsService) ListAll(ctx context.Context) ([]model.LogRecord, error) {
	return s.store.ListAll(ctx)
}

// Summary aggregates error-type and IP counts across all records
func (s *StatsService) Summary(ctx context.Context) (*stats.Summary, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Summarize(records), nil
}
