package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stateflow/pkg/domain"
)

func TestNodeFailureOnSecondInvocation(t *testing.T) {
	boom := errors.New("disk on fire")
	calls := 0
	g := domain.NewGraph("two-loop")
	require.NoError(t, g.AddNode(domain.NewFuncNode("flaky", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return s, nil
	})))
	require.NoError(t, g.AddEdge(domain.Edge{From: "flaky", To: "flaky"}))
	require.NoError(t, g.SetEntry("flaky"))

	res, err := NewEngine().Run(context.Background(), g, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	require.Len(t, res.Log, 2)
	assert.Empty(t, res.Log[0].Error)
	assert.Contains(t, res.Log[1].Error, "disk on fire")
	require.NotNil(t, res.Log[1].Before)
	require.NotNil(t, res.Log[1].After)

	var nodeErr *domain.NodeError
	require.ErrorAs(t, res.Err, &nodeErr)
	assert.Equal(t, "flaky", nodeErr.Node)
	assert.ErrorIs(t, res.Err, boom)
}

func TestFailedStepRecordsBeforeSnapshot(t *testing.T) {
	g := domain.NewGraph("fail-snap")
	require.NoError(t, g.AddNode(domain.NewFuncNode("bad", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		// Mutations made before the failure stay in the run's final
		// state but are not laundered into the log entry.
		s.Set("partial", true)
		return nil, errors.New("gave up")
	})))
	require.NoError(t, g.SetEntry("bad"))

	res, err := NewEngine().Run(context.Background(), g, map[string]any{"seed": 1})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	require.Len(t, res.Log, 1)

	_, ok := res.Log[0].Before.Get("partial")
	assert.False(t, ok)
	_, ok = res.Log[0].After.Get("partial")
	assert.False(t, ok)
	_, ok = res.FinalState.Get("partial")
	assert.True(t, ok)
}

func TestNilStateWithoutErrorFailsTheRun(t *testing.T) {
	g := domain.NewGraph("nil-state")
	require.NoError(t, g.AddNode(domain.NewFuncNode("void", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		return nil, nil
	})))
	require.NoError(t, g.SetEntry("void"))

	res, err := NewEngine().Run(context.Background(), g, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	require.Len(t, res.Log, 1)
	assert.Contains(t, res.Log[0].Error, "nil state")
}

func TestPredicateErrorIsAttributedToTheEdge(t *testing.T) {
	g := domain.NewGraph("bad-edge")
	require.NoError(t, g.AddNode(domain.NewFuncNode("a", noop)))
	require.NoError(t, g.AddNode(domain.NewFuncNode("b", noop)))
	require.NoError(t, g.AddEdge(domain.Edge{
		From: "a", To: "b",
		Predicate: func(ctx context.Context, s *domain.State) (bool, error) {
			return false, errors.New("predicate exploded")
		},
	}))
	require.NoError(t, g.SetEntry("a"))

	res, err := NewEngine().Run(context.Background(), g, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)

	// The node itself succeeded; its entry stays in the log with the
	// routing failure attached for context.
	require.Len(t, res.Log, 1)
	assert.Equal(t, "a", res.Log[0].Node)
	assert.Contains(t, res.Log[0].Error, "predicate exploded")

	var edgeErr *domain.EdgeError
	require.ErrorAs(t, res.Err, &edgeErr)
	assert.Equal(t, "a", edgeErr.From)
	assert.Equal(t, "b", edgeErr.To)
}

func TestFirstMatchingEdgeWins(t *testing.T) {
	g := domain.NewGraph("first-match")
	for _, n := range []string{"pick", "left", "right"} {
		require.NoError(t, g.AddNode(domain.NewFuncNode(n, noop)))
	}
	require.NoError(t, g.AddEdge(domain.Edge{
		From: "pick", To: "left",
		Predicate: func(ctx context.Context, s *domain.State) (bool, error) { return true, nil },
	}))
	require.NoError(t, g.AddEdge(domain.Edge{From: "pick", To: "right"}))
	require.NoError(t, g.SetEntry("pick"))

	res, err := NewEngine().Run(context.Background(), g, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	require.Len(t, res.Log, 2)
	assert.Equal(t, "left", res.Log[1].Node)
}
