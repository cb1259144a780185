package definition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/registry"
)

func passthrough(_ context.Context, state *domain.State) (*domain.State, error) {
	return state, nil
}

func testRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, name := range names {
		require.NoError(t, reg.Register(registry.Tool{Name: name, Handler: passthrough}))
	}
	return reg
}

func TestBuildLinearGraph(t *testing.T) {
	def := GraphDefinition{
		Name: "pipeline",
		Nodes: []NodeDefinition{
			{Name: "fetch"},
			{Name: "transform"},
		},
		Edges: []EdgeDefinition{
			{From: "fetch", To: "transform"},
		},
	}

	g, err := Build(def, testRegistry(t, "fetch", "transform"))
	require.NoError(t, err)
	assert.Equal(t, "pipeline", g.Name())
	assert.Equal(t, "fetch", g.Entry())
	assert.Equal(t, []string{"fetch", "transform"}, g.Nodes())

	edges := g.EdgesFrom("fetch")
	require.Len(t, edges, 1)
	assert.Nil(t, edges[0].Predicate)
}

func TestBuildExplicitEntry(t *testing.T) {
	def := GraphDefinition{
		Name:  "reversed",
		Entry: "start",
		Nodes: []NodeDefinition{
			{Name: "finish"},
			{Name: "start"},
		},
		Edges: []EdgeDefinition{
			{From: "start", To: "finish"},
		},
	}

	g, err := Build(def, testRegistry(t, "finish", "start"))
	require.NoError(t, err)
	assert.Equal(t, "start", g.Entry())
}

func TestBuildCompilesConditions(t *testing.T) {
	def := GraphDefinition{
		Name: "guarded",
		Nodes: []NodeDefinition{
			{Name: "a"},
			{Name: "b"},
		},
		Edges: []EdgeDefinition{
			{From: "a", To: "b", Condition: "score > 10"},
		},
	}

	g, err := Build(def, testRegistry(t, "a", "b"))
	require.NoError(t, err)

	edges := g.EdgesFrom("a")
	require.Len(t, edges, 1)
	assert.Equal(t, "score > 10", edges[0].Label)
	require.NotNil(t, edges[0].Predicate)

	ok, err := edges[0].Predicate(context.Background(), domain.NewState().Set("score", 20))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = edges[0].Predicate(context.Background(), domain.NewState().Set("score", 5))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildUnknownTool(t *testing.T) {
	def := GraphDefinition{
		Name:  "broken",
		Nodes: []NodeDefinition{{Name: "a"}, {Name: "b", Tool: "missing"}},
		Edges: []EdgeDefinition{{From: "a", To: "b"}},
	}

	_, err := Build(def, testRegistry(t, "a"))
	require.Error(t, err)

	var invalid *domain.InvalidGraphError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), `references unknown tool "missing"`)
}

func TestBuildBadConditionReported(t *testing.T) {
	def := GraphDefinition{
		Name:  "typo",
		Nodes: []NodeDefinition{{Name: "a"}, {Name: "b"}},
		Edges: []EdgeDefinition{{From: "a", To: "b", Condition: "score <"}},
	}

	_, err := Build(def, testRegistry(t, "a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `edge "a" -> "b"`)
}

func TestBuildRunsGraphValidation(t *testing.T) {
	// Node c has no incoming edge, so the built graph fails reachability.
	def := GraphDefinition{
		Name:  "islands",
		Nodes: []NodeDefinition{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Edges: []EdgeDefinition{{From: "a", To: "b"}},
	}

	_, err := Build(def, testRegistry(t, "a", "b", "c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestBuildNilRegistry(t *testing.T) {
	_, err := Build(GraphDefinition{Name: "x", Nodes: []NodeDefinition{{Name: "a"}}}, nil)
	assert.Error(t, err)
}
