// Package memory provides an in-memory ports.Store. It backs the default
// server configuration and tests; nothing survives a restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/stateflow/pkg/ports"
)

// Store keeps graph and run records in maps. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]ports.GraphRecord
	runs   map[string]ports.RunRecord
}

var _ ports.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		graphs: make(map[string]ports.GraphRecord),
		runs:   make(map[string]ports.RunRecord),
	}
}

// SaveGraph inserts or replaces a graph record.
func (s *Store) SaveGraph(ctx context.Context, rec ports.GraphRecord) error {
	copied, err := copyGraphRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[rec.ID] = copied
	return nil
}

// GetGraph retrieves a graph by ID.
func (s *Store) GetGraph(ctx context.Context, id string) (ports.GraphRecord, error) {
	s.mu.RLock()
	rec, ok := s.graphs[id]
	s.mu.RUnlock()
	if !ok {
		return ports.GraphRecord{}, fmt.Errorf("graph %q: %w", id, ports.ErrGraphNotFound)
	}
	return copyGraphRecord(rec)
}

// ListGraphs returns all graphs, oldest first.
func (s *Store) ListGraphs(ctx context.Context) ([]ports.GraphRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.GraphRecord, 0, len(s.graphs))
	for _, rec := range s.graphs {
		copied, err := copyGraphRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteGraph removes a graph.
func (s *Store) DeleteGraph(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphs[id]; !ok {
		return fmt.Errorf("graph %q: %w", id, ports.ErrGraphNotFound)
	}
	delete(s.graphs, id)
	return nil
}

// SaveRun inserts or replaces a run record.
func (s *Store) SaveRun(ctx context.Context, rec ports.RunRecord) error {
	copied, err := copyRunRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.ID] = copied
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (ports.RunRecord, error) {
	s.mu.RLock()
	rec, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return ports.RunRecord{}, fmt.Errorf("run %q: %w", id, ports.ErrRunNotFound)
	}
	return copyRunRecord(rec)
}

// ListRuns returns runs matching the filter, newest first.
func (s *Store) ListRuns(ctx context.Context, filter ports.RunFilter) ([]ports.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if filter.GraphID != "" && rec.GraphID != filter.GraphID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		copied, err := copyRunRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Close is a no-op; the store holds no external resources.
func (s *Store) Close() error {
	return nil
}

// Records hold nested definitions, states and snapshots, so isolation is
// done the same way the persistent backends do it: through the JSON codec.
func copyGraphRecord(rec ports.GraphRecord) (ports.GraphRecord, error) {
	var out ports.GraphRecord
	if err := roundTrip(rec, &out); err != nil {
		return out, fmt.Errorf("copy graph record %q: %w", rec.ID, err)
	}
	return out, nil
}

func copyRunRecord(rec ports.RunRecord) (ports.RunRecord, error) {
	var out ports.RunRecord
	if err := roundTrip(rec, &out); err != nil {
		return out, fmt.Errorf("copy run record %q: %w", rec.ID, err)
	}
	return out, nil
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
