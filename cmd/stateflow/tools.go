package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow/pkg/registry"
	"github.com/aretw0/stateflow/pkg/tools/codereview"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the built-in node tools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg := registry.New()
		if err := codereview.Register(reg); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, t := range reg.List() {
			fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
