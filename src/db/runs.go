package db

import (
	"context"
	"sync"

	"monzo-manager/src/models"
)

// RunStore records and lists budget and salary runs.
type RunStore interface {
	RecordRun(ctx context.Context, run models.Run) error
	ListRuns(ctx context.Context, kind string, limit int) ([]models.Run, error)
}

// MemoryRunStore keeps the most recent runs in memory when no database is configured.
type MemoryRunStore struct {
	mu   sync.Mutex
	max  int
	runs []models.Run
}

func NewMemoryRunStore(max int) *MemoryRunStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryRunStore{max: max}
}

func (s *MemoryRunStore) RecordRun(ctx context.Context, run models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	if len(s.runs) > s.max {
		s.runs = s.runs[len(s.runs)-s.max:]
	}
	return nil
}

// ListRuns returns runs newest first, optionally filtered by kind.
func (s *MemoryRunStore) ListRuns(ctx context.Context, kind string, limit int) ([]models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Run{}
	for i := len(s.runs) - 1; i >= 0; i-- {
		if kind != "" && s.runs[i].Kind != kind {
			continue
		}
		out = append(out, s.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
