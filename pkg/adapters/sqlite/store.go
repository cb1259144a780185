// Package sqlite provides a ports.Store backed by an embedded SQLite
// database via the pure-Go modernc.org driver.
//
// The caller owns the *sql.DB and is responsible for importing the driver:
//
//	import _ "modernc.org/sqlite"
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/ports"
)

// Store persists graphs and runs in SQLite. Definitions, final states and
// logs are stored as JSON payload columns; the filterable fields get their
// own columns and indexes.
type Store struct {
	db *sql.DB
}

var _ ports.Store = (*Store)(nil)

// Open opens (or creates) the database at path and initializes the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent run persistence.
	db.SetMaxOpenConns(1)
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore initializes the schema on an existing database handle.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS graphs (
			id         TEXT PRIMARY KEY,
			definition BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			graph_id     TEXT NOT NULL,
			graph_name   TEXT NOT NULL,
			status       TEXT NOT NULL,
			final_state  BLOB,
			error        TEXT NOT NULL DEFAULT '',
			log          BLOB,
			started_at   TEXT NOT NULL,
			completed_at TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_graph_id ON runs (graph_id);
		CREATE INDEX IF NOT EXISTS idx_runs_status ON runs (status);
	`)
	return err
}

// SaveGraph inserts or replaces a graph record.
func (s *Store) SaveGraph(ctx context.Context, rec ports.GraphRecord) error {
	def, err := json.Marshal(rec.Definition)
	if err != nil {
		return fmt.Errorf("encode graph %q: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graphs (id, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			definition = excluded.definition,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		rec.ID, def, encodeTime(rec.CreatedAt), encodeTime(rec.UpdatedAt),
	)
	return err
}

// GetGraph retrieves a graph by ID.
func (s *Store) GetGraph(ctx context.Context, id string) (ports.GraphRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, definition, created_at, updated_at FROM graphs WHERE id = ?`, id)

	var rec ports.GraphRecord
	var def []byte
	var created, updated string
	if err := row.Scan(&rec.ID, &def, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, fmt.Errorf("graph %q: %w", id, ports.ErrGraphNotFound)
		}
		return rec, err
	}
	if err := decodeGraphRow(&rec, def, created, updated); err != nil {
		return rec, err
	}
	return rec, nil
}

// ListGraphs returns all graphs, oldest first.
func (s *Store) ListGraphs(ctx context.Context) ([]ports.GraphRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, definition, created_at, updated_at FROM graphs
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.GraphRecord
	for rows.Next() {
		var rec ports.GraphRecord
		var def []byte
		var created, updated string
		if err := rows.Scan(&rec.ID, &def, &created, &updated); err != nil {
			return nil, err
		}
		if err := decodeGraphRow(&rec, def, created, updated); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteGraph removes a graph.
func (s *Store) DeleteGraph(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("graph %q: %w", id, ports.ErrGraphNotFound)
	}
	return nil
}

// SaveRun inserts or replaces a run record.
func (s *Store) SaveRun(ctx context.Context, rec ports.RunRecord) error {
	finalState, log, err := encodeRunPayloads(rec)
	if err != nil {
		return err
	}
	var completed any
	if rec.CompletedAt != nil {
		completed = encodeTime(*rec.CompletedAt)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, graph_id, graph_name, status, final_state, error, log, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			graph_id     = excluded.graph_id,
			graph_name   = excluded.graph_name,
			status       = excluded.status,
			final_state  = excluded.final_state,
			error        = excluded.error,
			log          = excluded.log,
			started_at   = excluded.started_at,
			completed_at = excluded.completed_at`,
		rec.ID, rec.GraphID, rec.GraphName, string(rec.Status),
		finalState, rec.Error, log, encodeTime(rec.StartedAt), completed,
	)
	return err
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (ports.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, graph_id, graph_name, status, final_state, error, log, started_at, completed_at
		FROM runs WHERE id = ?`, id)

	rec, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, fmt.Errorf("run %q: %w", id, ports.ErrRunNotFound)
		}
		return rec, err
	}
	return rec, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *Store) ListRuns(ctx context.Context, filter ports.RunFilter) ([]ports.RunRecord, error) {
	var where []string
	var args []any
	if filter.GraphID != "" {
		where = append(where, "graph_id = ?")
		args = append(args, filter.GraphID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT id, graph_id, graph_name, status, final_state, error, log, started_at, completed_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeRunPayloads(rec ports.RunRecord) (finalState, log []byte, err error) {
	if rec.FinalState != nil {
		finalState, err = json.Marshal(rec.FinalState)
		if err != nil {
			return nil, nil, fmt.Errorf("encode run %q final state: %w", rec.ID, err)
		}
	}
	if len(rec.Log) > 0 {
		log, err = json.Marshal(rec.Log)
		if err != nil {
			return nil, nil, fmt.Errorf("encode run %q log: %w", rec.ID, err)
		}
	}
	return finalState, log, nil
}

func scanRun(scan func(dest ...any) error) (ports.RunRecord, error) {
	var rec ports.RunRecord
	var status string
	var finalState, log []byte
	var started string
	var completed sql.NullString

	if err := scan(&rec.ID, &rec.GraphID, &rec.GraphName, &status,
		&finalState, &rec.Error, &log, &started, &completed); err != nil {
		return rec, err
	}
	rec.Status = domain.Status(status)

	if len(finalState) > 0 {
		state := domain.NewState()
		if err := json.Unmarshal(finalState, state); err != nil {
			return rec, fmt.Errorf("decode run %q final state: %w", rec.ID, err)
		}
		rec.FinalState = state
	}
	if len(log) > 0 {
		if err := json.Unmarshal(log, &rec.Log); err != nil {
			return rec, fmt.Errorf("decode run %q log: %w", rec.ID, err)
		}
	}

	startedAt, err := decodeTime(started)
	if err != nil {
		return rec, fmt.Errorf("decode run %q started_at: %w", rec.ID, err)
	}
	rec.StartedAt = startedAt

	if completed.Valid {
		completedAt, err := decodeTime(completed.String)
		if err != nil {
			return rec, fmt.Errorf("decode run %q completed_at: %w", rec.ID, err)
		}
		rec.CompletedAt = &completedAt
	}
	return rec, nil
}

func decodeGraphRow(rec *ports.GraphRecord, def []byte, created, updated string) error {
	if err := json.Unmarshal(def, &rec.Definition); err != nil {
		return fmt.Errorf("decode graph %q definition: %w", rec.ID, err)
	}
	createdAt, err := decodeTime(created)
	if err != nil {
		return fmt.Errorf("decode graph %q created_at: %w", rec.ID, err)
	}
	updatedAt, err := decodeTime(updated)
	if err != nil {
		return fmt.Errorf("decode graph %q updated_at: %w", rec.ID, err)
	}
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	return nil
}

// Timestamps are stored as RFC3339Nano UTC strings: readable in the
// database and ordered lexicographically, which ORDER BY relies on.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
