package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthrough(ctx context.Context, s *State) (*State, error) {
	return s, nil
}

func TestAddNodeRejectsDuplicatesAndBadInput(t *testing.T) {
	g := NewGraph("test")
	require.NoError(t, g.AddNode(NewFuncNode("a", passthrough)))

	err := g.AddNode(NewFuncNode("a", passthrough))
	var dup *DuplicateNodeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.Name)

	assert.Error(t, g.AddNode(nil))
	assert.Error(t, g.AddNode(NewFuncNode("", passthrough)))
}

func TestAddEdgeChecksEndpoints(t *testing.T) {
	g := NewGraph("test")
	require.NoError(t, g.AddNode(NewFuncNode("a", passthrough)))

	var unknown *UnknownNodeError

	err := g.AddEdge(Edge{From: "a", To: "missing"})
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Name)

	err = g.AddEdge(Edge{From: "ghost", To: "a"})
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)

	require.NoError(t, g.AddNode(NewFuncNode("b", passthrough)))
	require.NoError(t, g.AddEdge(Edge{From: "a", To: "b"}))
	assert.Len(t, g.EdgesFrom("a"), 1)
}

func TestSetEntryRequiresExistingNode(t *testing.T) {
	g := NewGraph("test")
	var unknown *UnknownNodeError
	require.ErrorAs(t, g.SetEntry("nope"), &unknown)

	require.NoError(t, g.AddNode(NewFuncNode("a", passthrough)))
	require.NoError(t, g.SetEntry("a"))
	assert.Equal(t, "a", g.Entry())
}

func TestValidateListsAllProblems(t *testing.T) {
	g := NewGraph("broken")
	require.NoError(t, g.AddNode(NewFuncNode("a", passthrough)))
	require.NoError(t, g.AddNode(NewFuncNode("island", passthrough)))
	require.NoError(t, g.AddNode(NewFuncNode("lame", nil)))
	require.NoError(t, g.SetEntry("a"))

	err := g.Validate()
	var invalid *InvalidGraphError
	require.ErrorAs(t, err, &invalid)

	// One problem for the nil handler, one each for the two nodes the
	// entry cannot reach.
	assert.Len(t, invalid.Problems, 3)
	assert.Contains(t, err.Error(), `node "lame" has no handler`)
	assert.Contains(t, err.Error(), `node "island" is unreachable`)
}

func TestValidateEmptyGraph(t *testing.T) {
	g := NewGraph("empty")
	err := g.Validate()
	var invalid *InvalidGraphError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Problems, "graph has no nodes")
	assert.Contains(t, invalid.Problems, "no entry node set")
}

func TestValidateIsIdempotent(t *testing.T) {
	g := NewGraph("ok")
	require.NoError(t, g.AddNode(NewFuncNode("a", passthrough)))
	require.NoError(t, g.AddNode(NewFuncNode("b", passthrough)))
	require.NoError(t, g.AddEdge(Edge{From: "a", To: "b"}))
	require.NoError(t, g.SetEntry("a"))

	require.NoError(t, g.Validate())
	require.NoError(t, g.Validate())

	bad := NewGraph("bad")
	first := bad.Validate()
	second := bad.Validate()
	assert.Equal(t, first.Error(), second.Error())
}

func TestFrozenGraphRejectsMutation(t *testing.T) {
	g := NewGraph("frozen")
	require.NoError(t, g.AddNode(NewFuncNode("a", passthrough)))
	require.NoError(t, g.SetEntry("a"))

	g.Freeze()
	assert.True(t, g.Frozen())

	assert.True(t, errors.Is(g.AddNode(NewFuncNode("b", passthrough)), ErrGraphFrozen))
	assert.True(t, errors.Is(g.AddEdge(Edge{From: "a", To: "a"}), ErrGraphFrozen))
	assert.True(t, errors.Is(g.SetEntry("a"), ErrGraphFrozen))

	// Validation still works on a frozen graph.
	require.NoError(t, g.Validate())
}

func TestNodesAndEdgesAccessorsReturnCopies(t *testing.T) {
	g := NewGraph("copies")
	require.NoError(t, g.AddNode(NewFuncNode("a", passthrough)))
	require.NoError(t, g.AddNode(NewFuncNode("b", passthrough)))
	require.NoError(t, g.AddEdge(Edge{From: "a", To: "b"}))

	nodes := g.Nodes()
	nodes[0] = "tampered"
	assert.Equal(t, []string{"a", "b"}, g.Nodes())

	edges := g.EdgesFrom("a")
	edges[0].To = "tampered"
	assert.Equal(t, "b", g.EdgesFrom("a")[0].To)
}
