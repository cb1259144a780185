package dsl

import "github.com/aretw0/stateflow/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	name        string
	handler     domain.Handler
	transitions []transition
	builder     *Builder
}

type transition struct {
	to        string
	condition string
	pred      domain.Predicate
}

// Do sets the handler executed when the node runs.
func (n *NodeBuilder) Do(h domain.Handler) *NodeBuilder {
	n.handler = h
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.transitions = append(n.transitions, transition{to: target})
	return n
}

// Branch adds a transition guarded by a condition expression, compiled
// when the graph is built. Transitions are evaluated in declaration
// order, so a Branch usually precedes the fallback Go.
func (n *NodeBuilder) Branch(cond string, target string) *NodeBuilder {
	n.transitions = append(n.transitions, transition{to: target, condition: cond})
	return n
}

// When adds a transition guarded by a predicate function.
func (n *NodeBuilder) When(pred domain.Predicate, target string) *NodeBuilder {
	n.transitions = append(n.transitions, transition{to: target, pred: pred})
	return n
}

// Terminal drops any transitions declared so far, marking the node as an
// end of the flow.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.transitions = nil
	return n
}
