// Package definition holds the declarative form of a workflow graph: the
// shape a graph takes in YAML files, API payloads and tool arguments before
// it is bound to executable handlers. Build turns a definition plus a tool
// registry into a runnable domain graph.
package definition

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/stateflow/pkg/domain"
)

// GraphDefinition describes a workflow graph declaratively. Entry is
// optional; when empty the first node is the entry, matching how graphs
// are usually written.
type GraphDefinition struct {
	Name        string           `json:"name" yaml:"name" mapstructure:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Entry       string           `json:"entry,omitempty" yaml:"entry,omitempty" mapstructure:"entry"`
	Nodes       []NodeDefinition `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Edges       []EdgeDefinition `json:"edges,omitempty" yaml:"edges,omitempty" mapstructure:"edges"`
}

// NodeDefinition binds a node name to a registered tool. Tool defaults to
// the node name, so simple graphs need not repeat themselves.
type NodeDefinition struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Tool        string `json:"tool,omitempty" yaml:"tool,omitempty" mapstructure:"tool"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// ToolName returns the tool this node binds to.
func (n NodeDefinition) ToolName() string {
	if n.Tool != "" {
		return n.Tool
	}
	return n.Name
}

// EdgeDefinition is a transition between two named nodes. Condition, when
// present, is an expression over state keys; it is compiled by Build.
type EdgeDefinition struct {
	From      string `json:"from" yaml:"from" mapstructure:"from"`
	To        string `json:"to" yaml:"to" mapstructure:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
}

// EntryNode returns the effective entry node name.
func (d GraphDefinition) EntryNode() string {
	if d.Entry != "" {
		return d.Entry
	}
	if len(d.Nodes) > 0 {
		return d.Nodes[0].Name
	}
	return ""
}

// Validate checks the definition's internal consistency and reports every
// problem at once as a *domain.InvalidGraphError. Tool bindings are not
// checked here; Build verifies them against a registry.
func (d GraphDefinition) Validate() error {
	var problems []string

	if d.Name == "" {
		problems = append(problems, "graph name is empty")
	}
	if len(d.Nodes) == 0 {
		problems = append(problems, "graph has no nodes")
	}

	names := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.Name == "" {
			problems = append(problems, fmt.Sprintf("node %d has no name", i))
			continue
		}
		if names[n.Name] {
			problems = append(problems, fmt.Sprintf("duplicate node %q", n.Name))
		}
		names[n.Name] = true
	}

	for _, e := range d.Edges {
		if !names[e.From] {
			problems = append(problems, fmt.Sprintf("edge %q -> %q: unknown source node", e.From, e.To))
		}
		if !names[e.To] {
			problems = append(problems, fmt.Sprintf("edge %q -> %q: unknown target node", e.From, e.To))
		}
	}

	if d.Entry != "" && !names[d.Entry] {
		problems = append(problems, fmt.Sprintf("entry node %q does not exist", d.Entry))
	}

	if len(problems) > 0 {
		return &domain.InvalidGraphError{Problems: problems}
	}
	return nil
}

// UnknownToolError reports a node bound to a tool the registry does not
// hold.
type UnknownToolError struct {
	Tool string
	Node string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("node %q references unknown tool %q", e.Node, e.Tool)
}

// FromMap decodes a definition from loosely typed data, such as MCP tool
// arguments or a decoded JSON body. Scalar types are coerced where the
// intent is unambiguous.
func FromMap(raw map[string]any) (GraphDefinition, error) {
	var def GraphDefinition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &def,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return def, err
	}
	if err := dec.Decode(raw); err != nil {
		return def, fmt.Errorf("decode graph definition: %w", err)
	}
	return def, nil
}
