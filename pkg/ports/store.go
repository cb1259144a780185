package ports

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
)

// Sentinel errors shared by every store implementation.
var (
	ErrGraphNotFound = errors.New("graph not found")
	ErrRunNotFound   = errors.New("run not found")
)

// GraphRecord is a stored graph definition plus bookkeeping.
type GraphRecord struct {
	ID         string                     `json:"id"`
	Definition definition.GraphDefinition `json:"definition"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// RunRecord is a persisted run outcome. For runs still pending or running
// it holds what is known so far; SaveRun overwrites it as the run settles.
type RunRecord struct {
	ID          string              `json:"id"`
	GraphID     string              `json:"graph_id"`
	GraphName   string              `json:"graph_name"`
	Status      domain.Status       `json:"status"`
	FinalState  *domain.State       `json:"final_state,omitempty"`
	Error       string              `json:"error,omitempty"`
	Log         []domain.StepRecord `json:"log"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// RunRecordFrom flattens an engine result into its stored form.
func RunRecordFrom(graphID string, res *domain.RunResult) RunRecord {
	rec := RunRecord{
		ID:         res.ID,
		GraphID:    graphID,
		GraphName:  res.GraphName,
		Status:     res.Status,
		FinalState: res.FinalState,
		Log:        res.Log,
		StartedAt:  res.StartedAt,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if !res.CompletedAt.IsZero() {
		completed := res.CompletedAt
		rec.CompletedAt = &completed
	}
	return rec
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	GraphID string
	Status  domain.Status
	Limit   int
}

// GraphStore persists graph definitions.
type GraphStore interface {
	// SaveGraph inserts or replaces a graph record.
	SaveGraph(ctx context.Context, rec GraphRecord) error

	// GetGraph retrieves a graph by ID. Returns ErrGraphNotFound if absent.
	GetGraph(ctx context.Context, id string) (GraphRecord, error)

	// ListGraphs returns all graphs ordered by creation time, oldest first.
	ListGraphs(ctx context.Context) ([]GraphRecord, error)

	// DeleteGraph removes a graph. Returns ErrGraphNotFound if absent.
	DeleteGraph(ctx context.Context, id string) error
}

// RunStore persists run outcomes.
type RunStore interface {
	// SaveRun inserts or replaces a run record.
	SaveRun(ctx context.Context, rec RunRecord) error

	// GetRun retrieves a run by ID. Returns ErrRunNotFound if absent.
	GetRun(ctx context.Context, id string) (RunRecord, error)

	// ListRuns returns runs matching the filter, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)
}

// Store is the full persistence surface an adapter provides.
type Store interface {
	GraphStore
	RunStore

	// Close releases the backend connection. Safe to call more than once.
	Close() error
}
