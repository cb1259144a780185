/*
Package stateflow is a deterministic workflow-graph interpreter. A workflow
is a directed graph of named nodes; each node wraps a handler that
transforms a shared key-value state, and edges carry optional predicates
that route execution. The interpreter walks the graph from the entry node,
following the first matching edge after each step, until it reaches a node
with no outgoing match, fails, is cancelled, or hits the iteration cap.

Every run produces an auditable log: one record per node invocation with
state snapshots from before and after the step, so loops and failures can
be reconstructed exactly.

# Usage

Register tools (named handlers), describe the graph, and run it:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/stateflow"
		"github.com/aretw0/stateflow/pkg/definition"
		"github.com/aretw0/stateflow/pkg/domain"
		"github.com/aretw0/stateflow/pkg/registry"
	)

	func main() {
		flow, err := stateflow.New(stateflow.WithTools(
			registry.Tool{Name: "greet", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
				name, _ := s.GetString("name")
				return s.Set("greeting", "hello "+name), nil
			}},
		))
		if err != nil {
			log.Fatal(err)
		}

		res, err := flow.RunDefinition(context.Background(), definition.GraphDefinition{
			Name:  "greeter",
			Nodes: []definition.NodeDefinition{{Name: "greet"}},
		}, map[string]any{"name": "world"})
		if err != nil {
			log.Fatal(err)
		}

		greeting, _ := res.FinalState.GetString("greeting")
		fmt.Println(res.Status, greeting)
	}

Graphs can also be built in code with pkg/dsl, loaded from YAML files with
pkg/definition, or managed remotely through the HTTP and MCP adapters
under pkg/adapters.
*/
package stateflow
