package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/tools/codereview"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>...",
	Short: "Check graph definitions for consistency",
	Long: `Parses each definition file and verifies it: node names are
unique, edges reference declared nodes, every node is reachable from the
entry, conditions compile, and tool references resolve against the
built-in registry. All problems are reported at once.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		flow, err := stateflow.New(stateflow.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		if err := codereview.Register(flow.Registry()); err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			def, err := definition.LoadFile(path)
			if err == nil {
				err = flow.Validate(def)
			}
			if err != nil {
				failed++
				fmt.Printf("%s: INVALID\n%v\n", path, err)
				continue
			}
			fmt.Printf("%s: OK\n", path)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d definitions invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
