package stateflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/dsl"
	"github.com/aretw0/stateflow/pkg/registry"
)

// A minimal two-node pipeline: fetch produces a value, publish marks it.
func Example() {
	flow, err := stateflow.New(stateflow.WithTools(
		registry.Tool{Name: "fetch", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
			return s.Set("value", 42), nil
		}},
		registry.Tool{Name: "publish", Handler: func(_ context.Context, s *domain.State) (*domain.State, error) {
			return s.Set("published", true), nil
		}},
	))
	if err != nil {
		log.Fatal(err)
	}

	res, err := flow.RunDefinition(context.Background(), definition.GraphDefinition{
		Name: "pipeline",
		Nodes: []definition.NodeDefinition{
			{Name: "fetch"},
			{Name: "publish"},
		},
		Edges: []definition.EdgeDefinition{{From: "fetch", To: "publish"}},
	}, nil)
	if err != nil {
		log.Fatal(err)
	}

	value, _ := res.FinalState.GetInt("value")
	fmt.Println(res.Status, len(res.Log), value)
	// Output: completed 2 42
}

// Conditional routing with the fluent builder: the check node sends small
// inputs one way and large inputs the other.
func Example_conditionalRouting() {
	b := dsl.New("triage")
	b.Node("check").
		Do(func(_ context.Context, s *domain.State) (*domain.State, error) {
			return s, nil
		}).
		Branch("n > 10", "big").
		Go("small")
	b.Node("big").Do(func(_ context.Context, s *domain.State) (*domain.State, error) {
		return s.Set("route", "big"), nil
	})
	b.Node("small").Do(func(_ context.Context, s *domain.State) (*domain.State, error) {
		return s.Set("route", "small"), nil
	})

	g, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	flow, _ := stateflow.New()
	res, err := flow.Run(context.Background(), g, map[string]any{"n": 25})
	if err != nil {
		log.Fatal(err)
	}

	route, _ := res.FinalState.GetString("route")
	fmt.Println(route)
	// Output: big
}
