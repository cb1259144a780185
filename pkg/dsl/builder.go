package dsl

import (
	"fmt"

	"github.com/aretw0/stateflow/pkg/condition"
	"github.com/aretw0/stateflow/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	name  string
	entry string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a builder for a graph with the given name.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Node creates a new node in the graph. If the node already exists, it
// returns the existing builder so a node can be declared once and wired
// from several places.
func (b *Builder) Node(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{name: name, builder: b}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Entry overrides the entry node. Without it, traversal starts at the
// first node added.
func (b *Builder) Entry(name string) *Builder {
	b.entry = name
	return b
}

// Build compiles the accumulated nodes and transitions into a validated
// graph. Every problem is reported, not just the first.
func (b *Builder) Build() (*domain.Graph, error) {
	g := domain.NewGraph(b.name)
	var problems []string

	for _, name := range b.order {
		if err := g.AddNode(domain.NewFuncNode(name, b.nodes[name].handler)); err != nil {
			problems = append(problems, err.Error())
		}
	}

	for _, name := range b.order {
		for _, t := range b.nodes[name].transitions {
			edge := domain.Edge{From: name, To: t.to, Predicate: t.pred}
			if t.condition != "" {
				pred, err := condition.Compile(t.condition)
				if err != nil {
					problems = append(problems, fmt.Sprintf("edge %q -> %q: %v", name, t.to, err))
					continue
				}
				edge.Predicate = pred
				edge.Label = t.condition
			}
			if err := g.AddEdge(edge); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}

	entry := b.entry
	if entry == "" && len(b.order) > 0 {
		entry = b.order[0]
	}
	if entry != "" {
		if err := g.SetEntry(entry); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return nil, &domain.InvalidGraphError{Problems: problems}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
