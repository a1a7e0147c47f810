package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]store.Run
	records map[string]map[recordKey]store.Record
}

type recordKey struct {
	position  int
	logicType string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:    make(map[string]store.Run),
		records: make(map[string]map[recordKey]store.Record),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateRun registers a run; ids must be unique.
func (s *Store) CreateRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("create run: %w: empty id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("create run %s: %w: already exists", r.ID, internalerr.ErrInvalidInput)
	}
	s.runs[r.ID] = r
	return nil
}

// FinishRun stamps the run's completion time.
func (s *Store) FinishRun(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	r.FinishedAt = at
	s.runs[id] = r
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (store.Run, error) {
	return s.latest(false)
}

// LatestFinishedRun returns the most recently started run that has finished.
func (s *Store) LatestFinishedRun(ctx context.Context) (store.Run, error) {
	return s.latest(true)
}

func (s *Store) latest(finished bool) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest store.Run
		found  bool
	)
	for _, r := range s.runs {
		if finished && !r.Finished() {
			continue
		}
		if !found || r.StartedAt.After(latest.StartedAt) ||
			(r.StartedAt.Equal(latest.StartedAt) && r.ID > latest.ID) {
			latest, found = r, true
		}
	}
	if !found {
		return store.Run{}, fmt.Errorf("latest run: %w", internalerr.ErrNotFound)
	}
	return latest, nil
}

// PutRecord inserts or replaces a record of an existing run.
func (s *Store) PutRecord(ctx context.Context, r store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.RunID]; !ok {
		return fmt.Errorf("put record: run %s: %w", r.RunID, internalerr.ErrNotFound)
	}
	recs := s.records[r.RunID]
	if recs == nil {
		recs = make(map[recordKey]store.Record)
		s.records[r.RunID] = recs
	}
	recs[recordKey{position: r.Position, logicType: r.LogicType}] = r
	return nil
}

// Records returns a run's records ordered by input position, then logic type.
func (s *Store) Records(ctx context.Context, runID string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("records: run %s: %w", runID, internalerr.ErrNotFound)
	}
	out := make([]store.Record, 0, len(s.records[runID]))
	for _, r := range s.records[runID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].LogicType < out[j].LogicType
	})
	return out, nil
}
