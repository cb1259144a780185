package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGraphFrozen is returned by graph mutators after the graph has been
// handed to an executor.
var ErrGraphFrozen = errors.New("graph is frozen")

// DuplicateNodeError is returned by AddNode when the name is already taken.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node %q", e.Name)
}

// UnknownNodeError is returned when an edge or entry point references a
// node that was never added. Ref describes the referencing site.
type UnknownNodeError struct {
	Name string
	Ref  string
}

func (e *UnknownNodeError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("unknown node %q", e.Name)
	}
	return fmt.Sprintf("unknown node %q (%s)", e.Name, e.Ref)
}

// InvalidGraphError aggregates every problem validation found, not just the
// first, so a broken graph is fixable in one pass.
type InvalidGraphError struct {
	Problems []string
}

func (e *InvalidGraphError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid graph"
	case 1:
		return "invalid graph: " + e.Problems[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "invalid graph: %d problems:", len(e.Problems))
	for i, p := range e.Problems {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, p)
	}
	return b.String()
}

// NodeError wraps a failure raised by a node during a run.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// EdgeError wraps a predicate failure raised while routing out of a node.
type EdgeError struct {
	From string
	To   string
	Err  error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("edge %q -> %q: %v", e.From, e.To, e.Err)
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}
