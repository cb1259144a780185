package domain

import (
	"context"
	"time"
)

// RunEvent describes a run starting or finishing.
type RunEvent struct {
	Time   time.Time `json:"timestamp"`
	RunID  string    `json:"run_id"`
	Graph  string    `json:"graph"`
	Status Status    `json:"status"`
	Err    string    `json:"error,omitempty"`
}

// StepEvent describes one node invocation. After carries the post-node
// snapshot on OnStepEnd and is nil on OnStepStart. Subscribers must treat
// the snapshot as read-only.
type StepEvent struct {
	Time     time.Time     `json:"timestamp"`
	RunID    string        `json:"run_id"`
	Graph    string        `json:"graph"`
	Node     string        `json:"node"`
	Step     int           `json:"step"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      string        `json:"error,omitempty"`
	After    *State        `json:"state_after,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. Any field may
// be nil. Hooks run synchronously on the executor's goroutine and should
// return quickly.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
	OnRunEnd    func(context.Context, *RunEvent)
}
