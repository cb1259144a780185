package domain

import "context"

// Predicate guards an edge. It must return a genuine boolean; an error
// aborts the run and is attributed to the edge.
type Predicate func(ctx context.Context, state *State) (bool, error)

// Edge is a directed routing rule between two nodes. A nil Predicate makes
// the edge unconditional. When a node has several outgoing edges they are
// evaluated in the order they were added and the first match wins, so
// routing is deterministic.
type Edge struct {
	From      string
	To        string
	Predicate Predicate

	// Label carries the human-readable condition text for serialization
	// and diagrams. It has no effect on routing.
	Label string
}

// Unconditional reports whether the edge is taken without evaluation.
func (e Edge) Unconditional() bool {
	return e.Predicate == nil
}
