package domain

import (
	"context"
	"fmt"
)

// Handler transforms a state into its successor state. Implementations may
// mutate the state in place and return it, or return a replacement. They
// must not retain the state across calls.
type Handler func(ctx context.Context, state *State) (*State, error)

// Node is a named unit of work within a graph. A single-method contract is
// all the engine needs: function-backed nodes and custom multi-step units
// both satisfy it.
type Node interface {
	Name() string
	Execute(ctx context.Context, state *State) (*State, error)
}

// NodeChecker is implemented by nodes that can verify their own wiring.
// Graph.Validate consults it so an unresolvable capability is reported
// before any run starts.
type NodeChecker interface {
	CheckNode() error
}

// FuncNode adapts a Handler into a Node.
type FuncNode struct {
	name string
	fn   Handler
}

var (
	_ Node        = (*FuncNode)(nil)
	_ NodeChecker = (*FuncNode)(nil)
)

// NewFuncNode wraps fn as a node with the given name.
func NewFuncNode(name string, fn Handler) *FuncNode {
	return &FuncNode{name: name, fn: fn}
}

// Name returns the node's name.
func (n *FuncNode) Name() string {
	return n.name
}

// Execute runs the wrapped handler.
func (n *FuncNode) Execute(ctx context.Context, state *State) (*State, error) {
	if n.fn == nil {
		return nil, fmt.Errorf("node %q has no handler", n.name)
	}
	return n.fn(ctx, state)
}

// CheckNode reports a missing handler.
func (n *FuncNode) CheckNode() error {
	if n.fn == nil {
		return fmt.Errorf("node %q has no handler", n.name)
	}
	return nil
}
