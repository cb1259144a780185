/*
Package domain contains the core model of the stateflow engine.

The model is deliberately small: a State record threaded through a run, a
Node that transforms State, an Edge that routes between nodes, a Graph that
owns nodes and edges, and the run records (RunResult, StepRecord) produced
by traversal.

Graphs are built additively (AddNode, AddEdge, SetEntry) and become
immutable once handed to an executor. Validation reports every problem it
finds in one pass, so a broken graph is diagnosable before any run is
attempted.
*/
package domain
