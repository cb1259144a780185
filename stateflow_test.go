package stateflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/dsl"
	"github.com/aretw0/stateflow/pkg/registry"
)

// reviewLoopFlow models an analyze/refine loop: "analyze" seeds counters,
// "score" raises the score each pass, "refine" loops back until the score
// is high enough or three passes have run, then "done" closes out.
func reviewLoopFlow(t *testing.T) (*stateflow.Flow, definition.GraphDefinition) {
	t.Helper()

	flow, err := stateflow.New(stateflow.WithTools(
		registry.Tool{Name: "analyze", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
			return s.Set("iterations", 0).Set("score", 0), nil
		}},
		registry.Tool{Name: "score", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
			iterations, _ := s.GetInt("iterations")
			iterations++
			return s.Set("iterations", iterations).Set("score", iterations*25), nil
		}},
		registry.Tool{Name: "refine", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
			return s, nil
		}},
		registry.Tool{Name: "done", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
			return s.Set("published", true), nil
		}},
	))
	require.NoError(t, err)

	def := definition.GraphDefinition{
		Name: "review-loop",
		Nodes: []definition.NodeDefinition{
			{Name: "analyze"},
			{Name: "score"},
			{Name: "refine"},
			{Name: "done"},
		},
		Edges: []definition.EdgeDefinition{
			{From: "analyze", To: "score"},
			{From: "score", To: "refine", Condition: "score < 70 && iterations < 3"},
			{From: "score", To: "done"},
			{From: "refine", To: "score"},
		},
	}
	return flow, def
}

func TestReviewLoopTraversal(t *testing.T) {
	flow, def := reviewLoopFlow(t)

	res, err := flow.RunDefinition(context.Background(), def, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)

	// Two refinement passes, then the third score (75) clears the bar.
	var trace []string
	for _, step := range res.Log {
		trace = append(trace, step.Node)
	}
	assert.Equal(t, []string{"analyze", "score", "refine", "score", "refine", "score", "done"}, trace)

	score, _ := res.FinalState.GetInt("score")
	iterations, _ := res.FinalState.GetInt("iterations")
	published, _ := res.FinalState.GetBool("published")
	assert.Equal(t, 75, score)
	assert.Equal(t, 3, iterations)
	assert.True(t, published)

	// Steps number from one and snapshots bracket each handler call.
	for i, step := range res.Log {
		assert.Equal(t, i+1, step.Step)
		require.NotNil(t, step.Before)
		require.NotNil(t, step.After)
	}
}

func TestFailureOnSecondStep(t *testing.T) {
	flow, err := stateflow.New(stateflow.WithTools(
		registry.Tool{Name: "prepare", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
			return s.Set("ready", true), nil
		}},
		registry.Tool{Name: "deploy", Handler: func(_ context.Context, _ *domain.State) (*domain.State, error) {
			return nil, fmt.Errorf("target unreachable")
		}},
	))
	require.NoError(t, err)

	res, err := flow.RunDefinition(context.Background(), definition.GraphDefinition{
		Name: "deployment",
		Nodes: []definition.NodeDefinition{
			{Name: "prepare"},
			{Name: "deploy"},
		},
		Edges: []definition.EdgeDefinition{{From: "prepare", To: "deploy"}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	require.Len(t, res.Log, 2)
	assert.Empty(t, res.Log[0].Error)
	assert.Equal(t, "deploy", res.Log[1].Node)
	assert.Contains(t, res.Log[1].Error, "target unreachable")

	var nodeErr *domain.NodeError
	require.True(t, errors.As(res.Err, &nodeErr))
	assert.Equal(t, "deploy", nodeErr.Node)

	// The failed step keeps the pre-failure state on both snapshots.
	ready, _ := res.Log[1].After.GetBool("ready")
	assert.True(t, ready)
}

func TestValidateIsIdempotent(t *testing.T) {
	flow, def := reviewLoopFlow(t)

	require.NoError(t, flow.Validate(def))
	require.NoError(t, flow.Validate(def))

	// Validation does not freeze anything: the definition still runs.
	res, err := flow.RunDefinition(context.Background(), def, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
}

func TestValidateReportsAllProblems(t *testing.T) {
	flow, _ := reviewLoopFlow(t)

	err := flow.Validate(definition.GraphDefinition{
		Name: "broken",
		Nodes: []definition.NodeDefinition{
			{Name: "a", Tool: "missing"},
			{Name: "b", Tool: "also-missing"},
		},
		Edges: []definition.EdgeDefinition{{From: "a", To: "b"}},
	})
	require.Error(t, err)

	var invalid *domain.InvalidGraphError
	require.True(t, errors.As(err, &invalid))
	assert.Len(t, invalid.Problems, 2)
}

func TestRunGraphBuiltWithDSL(t *testing.T) {
	flow, err := stateflow.New()
	require.NoError(t, err)

	b := dsl.New("countdown")
	b.Node("tick").
		Do(func(_ context.Context, s *domain.State) (*domain.State, error) {
			n, _ := s.GetInt("n")
			return s.Set("n", n-1), nil
		}).
		When(func(_ context.Context, s *domain.State) (bool, error) {
			n, _ := s.GetInt("n")
			return n > 0, nil
		}, "tick")
	g, err := b.Build()
	require.NoError(t, err)

	res, err := flow.Run(context.Background(), g, map[string]any{"n": 3})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Len(t, res.Log, 3)
	n, _ := res.FinalState.GetInt("n")
	assert.Equal(t, 0, n)
}

func TestNewRejectsDuplicateTools(t *testing.T) {
	handler := func(_ context.Context, s *domain.State) (*domain.State, error) { return s, nil }
	_, err := stateflow.New(stateflow.WithTools(
		registry.Tool{Name: "dup", Handler: handler},
		registry.Tool{Name: "dup", Handler: handler},
	))
	assert.Error(t, err)
}
