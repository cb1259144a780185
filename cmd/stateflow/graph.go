package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow/internal/presentation/graph"
	"github.com/aretw0/stateflow/pkg/definition"
)

var graphCmd = &cobra.Command{
	Use:   "graph <workflow.yaml>",
	Short: "Export a graph definition as a Mermaid diagram",
	Long:  `Parses a definition file and prints a Mermaid flowchart (graph TD) of its nodes and transitions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		def, err := definition.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := def.Validate(); err != nil {
			return err
		}
		fmt.Print(graph.GenerateMermaid(def, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
