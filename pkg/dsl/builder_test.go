package dsl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stateflow/pkg/domain"
)

func echo(_ context.Context, state *domain.State) (*domain.State, error) {
	return state, nil
}

func TestBuildLinearGraph(t *testing.T) {
	b := New("pipeline")
	b.Node("fetch").Do(echo).Go("store")
	b.Node("store").Do(echo)

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "pipeline", g.Name())
	assert.Equal(t, "fetch", g.Entry())
	assert.Equal(t, []string{"fetch", "store"}, g.Nodes())
	assert.Len(t, g.EdgesFrom("fetch"), 1)
	assert.Empty(t, g.EdgesFrom("store"))
}

func TestNodeReturnsExistingBuilder(t *testing.T) {
	b := New("g")
	first := b.Node("a")
	again := b.Node("a")
	assert.Same(t, first, again)
}

func TestBranchCompilesCondition(t *testing.T) {
	b := New("loop")
	b.Node("work").Do(echo).
		Branch("retries < 3", "work").
		Go("done")
	b.Node("done").Do(echo)

	g, err := b.Build()
	require.NoError(t, err)

	edges := g.EdgesFrom("work")
	require.Len(t, edges, 2)
	assert.Equal(t, "retries < 3", edges[0].Label)
	require.NotNil(t, edges[0].Predicate)
	assert.Nil(t, edges[1].Predicate)

	ok, err := edges[0].Predicate(context.Background(), domain.NewState().Set("retries", 1))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWhenUsesPredicateFunc(t *testing.T) {
	calls := 0
	pred := func(_ context.Context, _ *domain.State) (bool, error) {
		calls++
		return true, nil
	}

	b := New("g")
	b.Node("a").Do(echo).When(pred, "b")
	b.Node("b").Do(echo)

	g, err := b.Build()
	require.NoError(t, err)

	edges := g.EdgesFrom("a")
	require.Len(t, edges, 1)
	ok, err := edges[0].Predicate(context.Background(), domain.NewState())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
}

func TestEntryOverride(t *testing.T) {
	b := New("g").Entry("start")
	b.Node("finish").Do(echo)
	b.Node("start").Do(echo).Go("finish")

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "start", g.Entry())
}

func TestTerminalDropsTransitions(t *testing.T) {
	b := New("g")
	b.Node("a").Do(echo).Go("b")
	b.Node("b").Do(echo).Go("a").Terminal()

	g, err := b.Build()
	require.NoError(t, err)
	assert.Empty(t, g.EdgesFrom("b"))
}

func TestBuildAggregatesProblems(t *testing.T) {
	b := New("broken")
	b.Node("a").Go("ghost")
	b.Node("b").Do(echo)

	_, err := b.Build()
	require.Error(t, err)

	var invalid *domain.InvalidGraphError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuildBadCondition(t *testing.T) {
	b := New("g")
	b.Node("a").Do(echo).Branch("((", "b")
	b.Node("b").Do(echo)

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `edge "a" -> "b"`)
}
