// Package redis provides a ports.Store backed by Redis. Records are JSON
// values under prefixed keys, with ZSET indexes keyed by creation time so
// listings come back in a stable order without scanning the keyspace.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/stateflow/pkg/ports"
)

// Store implements ports.Store on a Redis client.
type Store struct {
	client *backend.Client
	prefix string
	runTTL time.Duration
}

var _ ports.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix (default "stateflow:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithRunTTL expires run records after ttl. Graphs never expire. Zero
// (the default) keeps runs forever.
func WithRunTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.runTTL = ttl
	}
}

// New connects to Redis and returns a store.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client. The store takes ownership; Close
// closes the client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "stateflow:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) graphKey(id string) string { return s.prefix + "graph:" + id }
func (s *Store) runKey(id string) string   { return s.prefix + "run:" + id }
func (s *Store) graphIndexKey() string     { return s.prefix + "graphs" }
func (s *Store) runIndexKey() string       { return s.prefix + "runs" }

// SaveGraph inserts or replaces a graph record.
func (s *Store) SaveGraph(ctx context.Context, rec ports.GraphRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode graph %q: %w", rec.ID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.graphKey(rec.ID), data, 0)
	pipe.ZAdd(ctx, s.graphIndexKey(), backend.Z{
		Score:  float64(rec.CreatedAt.UTC().UnixNano()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save graph %q: %w", rec.ID, err)
	}
	return nil
}

// GetGraph retrieves a graph by ID.
func (s *Store) GetGraph(ctx context.Context, id string) (ports.GraphRecord, error) {
	var rec ports.GraphRecord
	data, err := s.client.Get(ctx, s.graphKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return rec, fmt.Errorf("graph %q: %w", id, ports.ErrGraphNotFound)
		}
		return rec, fmt.Errorf("get graph %q: %w", id, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode graph %q: %w", id, err)
	}
	return rec, nil
}

// ListGraphs returns all graphs, oldest first.
func (s *Store) ListGraphs(ctx context.Context) ([]ports.GraphRecord, error) {
	ids, err := s.client.ZRange(ctx, s.graphIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}

	out := make([]ports.GraphRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetGraph(ctx, id)
		if errors.Is(err, ports.ErrGraphNotFound) {
			// Index entry outlived its key; drop it.
			s.client.ZRem(ctx, s.graphIndexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteGraph removes a graph.
func (s *Store) DeleteGraph(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	del := pipe.Del(ctx, s.graphKey(id))
	pipe.ZRem(ctx, s.graphIndexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete graph %q: %w", id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("graph %q: %w", id, ports.ErrGraphNotFound)
	}
	return nil
}

// SaveRun inserts or replaces a run record.
func (s *Store) SaveRun(ctx context.Context, rec ports.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %q: %w", rec.ID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(rec.ID), data, s.runTTL)
	pipe.ZAdd(ctx, s.runIndexKey(), backend.Z{
		Score:  float64(rec.StartedAt.UTC().UnixNano()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save run %q: %w", rec.ID, err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (ports.RunRecord, error) {
	var rec ports.RunRecord
	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return rec, fmt.Errorf("run %q: %w", id, ports.ErrRunNotFound)
		}
		return rec, fmt.Errorf("get run %q: %w", id, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode run %q: %w", id, err)
	}
	return rec, nil
}

// ListRuns returns runs matching the filter, newest first. Filtering
// happens client-side after the index walk; run listings are an inspection
// surface, not a hot path.
func (s *Store) ListRuns(ctx context.Context, filter ports.RunFilter) ([]ports.RunRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.runIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var out []ports.RunRecord
	for _, id := range ids {
		rec, err := s.GetRun(ctx, id)
		if errors.Is(err, ports.ErrRunNotFound) {
			// Expired run still indexed; drop it.
			s.client.ZRem(ctx, s.runIndexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.GraphID != "" && rec.GraphID != filter.GraphID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
