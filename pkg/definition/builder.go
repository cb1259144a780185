package definition

import (
	"errors"
	"fmt"

	"github.com/aretw0/stateflow/pkg/condition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/registry"
)

// Build binds a definition to the tools in reg and returns a validated
// domain graph. Problems are collected rather than reported one at a time:
// an unknown tool on one node does not hide a bad condition on another.
func Build(def GraphDefinition, reg *registry.Registry) (*domain.Graph, error) {
	if reg == nil {
		return nil, errors.New("build graph: nil registry")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	var problems []string

	g := domain.NewGraph(def.Name)
	for _, nd := range def.Nodes {
		tool, ok := reg.Get(nd.ToolName())
		if !ok {
			problems = append(problems, (&UnknownToolError{Tool: nd.ToolName(), Node: nd.Name}).Error())
			continue
		}
		if err := g.AddNode(domain.NewFuncNode(nd.Name, tool.Handler)); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		// Edges cannot be attached to nodes that were never added.
		return nil, &domain.InvalidGraphError{Problems: problems}
	}

	for _, ed := range def.Edges {
		edge := domain.Edge{From: ed.From, To: ed.To, Label: ed.Condition}
		if ed.Condition != "" {
			pred, err := condition.Compile(ed.Condition)
			if err != nil {
				problems = append(problems, fmt.Sprintf("edge %q -> %q: %v", ed.From, ed.To, err))
				continue
			}
			edge.Predicate = pred
		}
		if err := g.AddEdge(edge); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if entry := def.EntryNode(); entry != "" {
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
