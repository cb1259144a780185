package domain

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Graph is a registry of named nodes and their outgoing edges, plus a
// designated entry node. It is built additively and becomes immutable once
// handed to an executor, so concurrent runs can share one graph without
// locking.
type Graph struct {
	name   string
	entry  string
	nodes  map[string]Node
	order  []string
	edges  map[string][]Edge
	frozen atomic.Bool
}

// NewGraph returns an empty graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{
		name:  name,
		nodes: make(map[string]Node),
		edges: make(map[string][]Edge),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// Entry returns the entry node name, or "" when unset.
func (g *Graph) Entry() string {
	return g.entry
}

// Node returns the named node.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns the node names in the order they were added.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// EdgesFrom returns the outgoing edges of a node in declared order.
func (g *Graph) EdgesFrom(name string) []Edge {
	es := g.edges[name]
	out := make([]Edge, len(es))
	copy(out, es)
	return out
}

// AddNode registers a node. It fails with a *DuplicateNodeError when the
// name is already taken.
func (g *Graph) AddNode(n Node) error {
	if g.frozen.Load() {
		return fmt.Errorf("add node: %w", ErrGraphFrozen)
	}
	if n == nil {
		return errors.New("add node: nil node")
	}
	name := n.Name()
	if name == "" {
		return errors.New("add node: empty node name")
	}
	if _, exists := g.nodes[name]; exists {
		return &DuplicateNodeError{Name: name}
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
	return nil
}

// AddEdge registers an outgoing edge. Both endpoints must already exist;
// an unregistered endpoint fails with an *UnknownNodeError.
func (g *Graph) AddEdge(e Edge) error {
	if g.frozen.Load() {
		return fmt.Errorf("add edge: %w", ErrGraphFrozen)
	}
	if _, ok := g.nodes[e.From]; !ok {
		return &UnknownNodeError{Name: e.From, Ref: "edge source"}
	}
	if _, ok := g.nodes[e.To]; !ok {
		return &UnknownNodeError{Name: e.To, Ref: "edge target"}
	}
	g.edges[e.From] = append(g.edges[e.From], e)
	return nil
}

// SetEntry designates the node traversal starts at.
func (g *Graph) SetEntry(name string) error {
	if g.frozen.Load() {
		return fmt.Errorf("set entry: %w", ErrGraphFrozen)
	}
	if _, ok := g.nodes[name]; !ok {
		return &UnknownNodeError{Name: name, Ref: "entry point"}
	}
	g.entry = name
	return nil
}

// Freeze marks the graph immutable. The executor freezes the graph on its
// first run; callers may also freeze early. Freezing twice is harmless.
func (g *Graph) Freeze() {
	g.frozen.Store(true)
}

// Frozen reports whether the graph still accepts mutation.
func (g *Graph) Frozen() bool {
	return g.frozen.Load()
}

// Validate checks the whole graph and returns an *InvalidGraphError listing
// every problem found: missing nodes or entry, dangling edge endpoints,
// nodes that fail their own check, and nodes unreachable from the entry.
// Validate never mutates the graph, so repeated calls on an unmodified
// graph yield the same result.
func (g *Graph) Validate() error {
	var problems []string

	if len(g.order) == 0 {
		problems = append(problems, "graph has no nodes")
	}

	entryOK := false
	switch {
	case g.entry == "":
		problems = append(problems, "no entry node set")
	default:
		if _, ok := g.nodes[g.entry]; !ok {
			problems = append(problems, fmt.Sprintf("entry node %q does not exist", g.entry))
		} else {
			entryOK = true
		}
	}

	for _, name := range g.order {
		if c, ok := g.nodes[name].(NodeChecker); ok {
			if err := c.CheckNode(); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}

	for _, name := range g.order {
		for _, e := range g.edges[name] {
			if _, ok := g.nodes[e.From]; !ok {
				problems = append(problems, fmt.Sprintf("edge %q -> %q: source does not exist", e.From, e.To))
			}
			if _, ok := g.nodes[e.To]; !ok {
				problems = append(problems, fmt.Sprintf("edge %q -> %q: target does not exist", e.From, e.To))
			}
		}
	}

	if entryOK {
		reachable := g.reachableFrom(g.entry)
		for _, name := range g.order {
			if !reachable[name] {
				problems = append(problems, fmt.Sprintf("node %q is unreachable from entry %q", name, g.entry))
			}
		}
	}

	if len(problems) > 0 {
		return &InvalidGraphError{Problems: problems}
	}
	return nil
}

func (g *Graph) reachableFrom(start string) map[string]bool {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.edges[cur] {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return visited
}
