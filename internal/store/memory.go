package store

import (
	"context"
	"sort"
	"sync"

	"github.com/logboard/api/internal/model"
)

// MemoryStore implements StatsStore in process memory. Used when no
// database is configured, and throughout the test suite.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.LogRecord
}

// NewMemoryStore creates an empty in-memory stats store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.LogRecord),
	}
}

// Insert upserts the record on JobID
func (s *MemoryStore) Insert(ctx context.Context, record *model.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.JobID] = *record
	return nil
}

// GetByJobID fetches a single record or ErrNotFound
func (s *MemoryStore) GetByJobID(ctx context.Context, jobID string) (*model.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// ListAll returns every record, most recently processed first
func (s *MemoryStore) ListAll(ctx context.Context) ([]model.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.LogRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ProcessedAt.After(records[j].ProcessedAt)
	})
	return records, nil
}

// Len reports the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
