package domain

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	// StatusPending marks a run that is queued but not yet started.
	StatusPending Status = "pending"
	// StatusRunning marks a run in progress.
	StatusRunning Status = "running"
	// StatusCompleted marks a run that reached a terminal node.
	StatusCompleted Status = "completed"
	// StatusFailed marks a run aborted by a node or edge failure.
	StatusFailed Status = "failed"
	// StatusAborted marks a run stopped by the engine's iteration cap.
	// Hitting the cap is an expected outcome, reported distinctly rather
	// than truncated into a completion.
	StatusAborted Status = "aborted"
	// StatusCancelled marks a run stopped by caller cancellation.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted, StatusCancelled:
		return true
	}
	return false
}

// StepRecord is one entry of the execution log: exactly one per node
// invocation, including repeated invocations across loop iterations.
type StepRecord struct {
	Node       string    `json:"node"`
	Step       int       `json:"step"`
	Before     *State    `json:"state_before"`
	After      *State    `json:"state_after"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
}

// RunResult is what a run hands back to the caller: the terminal status,
// the final state, and the ordered execution log. Node and edge failures
// are absorbed here (Status, Err, and the offending log entry) instead of
// propagating as errors past the executor.
type RunResult struct {
	ID          string       `json:"id"`
	GraphName   string       `json:"graph"`
	Status      Status       `json:"status"`
	FinalState  *State       `json:"final_state"`
	Log         []StepRecord `json:"log"`
	Err         error        `json:"-"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}
