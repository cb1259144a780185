// Package runtime implements the graph executor: the traversal loop that
// invokes nodes, evaluates routing predicates, and records the execution
// log. The public entry point is wrapped by the stateflow root package.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/stateflow/internal/logging"
	"github.com/aretw0/stateflow/pkg/domain"
)

// DefaultMaxIterations is the engine-level ceiling on node invocations per
// run. It is independent of any loop counter a workflow author tracks in
// state: the author's counter is ordinary data their predicates can test,
// this cap is the circuit breaker that guarantees termination.
const DefaultMaxIterations = 100

// Engine drives graph traversal. One engine may serve many concurrent
// runs; each run owns its own state and log, and graphs are frozen before
// the first step, so no locking is needed.
type Engine struct {
	maxIterations int
	logger        *slog.Logger
	hooks         []domain.LifecycleHooks
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) EngineOption {
	return func(e *Engine) {
		e.maxIterations = n
	}
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks appends lifecycle hooks. Several hook sets may be registered
// (logging, metrics, streaming); they are invoked in registration order.
func WithHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// NewEngine returns an executor with the default iteration cap and a
// silent logger unless configured otherwise.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		maxIterations: DefaultMaxIterations,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxIterations <= 0 {
		e.maxIterations = DefaultMaxIterations
	}
	return e
}

// MaxIterations returns the configured iteration cap.
func (e *Engine) MaxIterations() int {
	return e.maxIterations
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	runID string
}

// WithRunID assigns the run a caller-chosen ID instead of a generated one.
// Background task layers use this so the ID exists before the run starts.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// Run executes the graph from its entry node over a state built from
// initial. It returns a non-nil error only for pre-flight problems (nil
// graph, validation failure); anything that goes wrong during traversal is
// absorbed into the RunResult's status, error, and log.
func (e *Engine) Run(ctx context.Context, g *domain.Graph, initial map[string]any, opts ...RunOption) (*domain.RunResult, error) {
	if g == nil {
		return nil, fmt.Errorf("run: nil graph")
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("run graph %q: %w", g.Name(), err)
	}
	g.Freeze()

	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	res := &domain.RunResult{
		ID:        cfg.runID,
		GraphName: g.Name(),
		Status:    domain.StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	state := domain.FromMap(initial)
	log := e.logger.With(slog.String("run_id", res.ID), slog.String("graph", g.Name()))

	e.emitRunEvent(ctx, hookRunStart, res)
	log.Info("run started", slog.String("entry", g.Entry()), slog.Int("max_iterations", e.maxIterations))

	current := g.Entry()
loop:
	for current != "" && len(res.Log) < e.maxIterations {
		node, _ := g.Node(current)
		step := len(res.Log) + 1
		before := state.Snapshot()
		started := time.Now()

		e.emitStepEvent(ctx, hookStepStart, &domain.StepEvent{
			Time:  started.UTC(),
			RunID: res.ID,
			Graph: res.GraphName,
			Node:  current,
			Step:  step,
		})

		next, execErr := node.Execute(ctx, state)
		if execErr == nil && next == nil {
			execErr = fmt.Errorf("node %q returned nil state", current)
		}
		if execErr != nil {
			res.Log = append(res.Log, domain.StepRecord{
				Node:       current,
				Step:       step,
				Before:     before,
				After:      before.Snapshot(),
				Error:      execErr.Error(),
				ExecutedAt: time.Now().UTC(),
			})
			res.Status = domain.StatusFailed
			res.Err = &domain.NodeError{Node: current, Err: execErr}
			e.emitStepEvent(ctx, hookStepEnd, &domain.StepEvent{
				Time:     time.Now().UTC(),
				RunID:    res.ID,
				Graph:    res.GraphName,
				Node:     current,
				Step:     step,
				Duration: time.Since(started),
				Err:      execErr.Error(),
			})
			log.Error("node failed", slog.String("node", current), slog.Int("step", step), slog.Any("error", execErr))
			break loop
		}

		state = next
		after := state.Snapshot()
		res.Log = append(res.Log, domain.StepRecord{
			Node:       current,
			Step:       step,
			Before:     before,
			After:      after,
			ExecutedAt: time.Now().UTC(),
		})
		e.emitStepEvent(ctx, hookStepEnd, &domain.StepEvent{
			Time:     time.Now().UTC(),
			RunID:    res.ID,
			Graph:    res.GraphName,
			Node:     current,
			Step:     step,
			Duration: time.Since(started),
			After:    after,
		})
		log.Debug("node executed", slog.String("node", current), slog.Int("step", step),
			slog.Duration("duration", time.Since(started)))

		// Cancellation is honored only here, between logging and routing,
		// so an in-flight node always runs to completion and its step is
		// never silently discarded.
		select {
		case <-ctx.Done():
			res.Status = domain.StatusCancelled
			res.Err = ctx.Err()
			log.Warn("run cancelled", slog.Int("steps", len(res.Log)))
			break loop
		default:
		}

		next2, routeErr := route(ctx, g, current, state)
		if routeErr != nil {
			res.Log[len(res.Log)-1].Error = routeErr.Error()
			res.Status = domain.StatusFailed
			res.Err = routeErr
			log.Error("routing failed", slog.String("node", current), slog.Any("error", routeErr))
			break loop
		}
		current = next2
	}

	if res.Status == domain.StatusRunning {
		if current == "" {
			res.Status = domain.StatusCompleted
		} else {
			res.Status = domain.StatusAborted
			log.Warn("iteration cap reached", slog.Int("cap", e.maxIterations), slog.String("next", current))
		}
	}
	res.FinalState = state
	res.CompletedAt = time.Now().UTC()

	e.emitRunEvent(ctx, hookRunEnd, res)
	log.Info("run finished", slog.String("status", string(res.Status)), slog.Int("steps", len(res.Log)))
	return res, nil
}

// route evaluates the outgoing edges of from in declared order and returns
// the first target whose predicate is true or absent. An empty string
// means the node is terminal.
func route(ctx context.Context, g *domain.Graph, from string, state *domain.State) (string, error) {
	for _, edge := range g.EdgesFrom(from) {
		if edge.Predicate == nil {
			return edge.To, nil
		}
		ok, err := edge.Predicate(ctx, state)
		if err != nil {
			return "", &domain.EdgeError{From: edge.From, To: edge.To, Err: err}
		}
		if ok {
			return edge.To, nil
		}
	}
	return "", nil
}

type hookKind int

const (
	hookRunStart hookKind = iota
	hookRunEnd
	hookStepStart
	hookStepEnd
)

func (e *Engine) emitRunEvent(ctx context.Context, kind hookKind, res *domain.RunResult) {
	ev := &domain.RunEvent{
		Time:   time.Now().UTC(),
		RunID:  res.ID,
		Graph:  res.GraphName,
		Status: res.Status,
	}
	if res.Err != nil {
		ev.Err = res.Err.Error()
	}
	for _, h := range e.hooks {
		switch {
		case kind == hookRunStart && h.OnRunStart != nil:
			h.OnRunStart(ctx, ev)
		case kind == hookRunEnd && h.OnRunEnd != nil:
			h.OnRunEnd(ctx, ev)
		}
	}
}

func (e *Engine) emitStepEvent(ctx context.Context, kind hookKind, ev *domain.StepEvent) {
	for _, h := range e.hooks {
		switch {
		case kind == hookStepStart && h.OnStepStart != nil:
			h.OnStepStart(ctx, ev)
		case kind == hookStepEnd && h.OnStepEnd != nil:
			h.OnStepEnd(ctx, ev)
		}
	}
}
