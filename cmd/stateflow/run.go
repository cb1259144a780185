package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/internal/presentation/tui"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/tools/codereview"
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Execute a workflow graph from a definition file",
	Long: `Loads a YAML or JSON graph definition, binds its nodes to the
built-in tools and executes it. The run report is printed to stdout.

Interrupting with Ctrl-C stops the run after the node in flight
finishes; the partial log is still reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stateJSON, _ := cmd.Flags().GetString("state")
		sets, _ := cmd.Flags().GetStringArray("set")
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")
		jsonOut, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")

		initial, err := buildInitialState(stateJSON, sets)
		if err != nil {
			return err
		}

		opts := []stateflow.Option{stateflow.WithLogger(slog.Default())}
		if maxIterations > 0 {
			opts = append(opts, stateflow.WithMaxIterations(maxIterations))
		}
		flow, err := stateflow.New(opts...)
		if err != nil {
			return err
		}
		if err := codereview.Register(flow.Registry()); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !quiet && !jsonOut {
			tui.PrintBanner(os.Stdout)
		}

		res, err := flow.RunFile(ctx, args[0], initial)
		if err != nil {
			return err
		}

		if jsonOut {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		} else {
			fmt.Print(tui.RenderMarkdown(tui.Report(res)))
		}

		if res.Status != domain.StatusCompleted {
			return fmt.Errorf("run %s: %s", res.ID, tui.ColorStatus(res.Status))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("state", "", "Initial state as a JSON object")
	runCmd.Flags().StringArray("set", nil, "Set an initial state key (key=value, value parsed as JSON when possible)")
	runCmd.Flags().Int("max-iterations", 0, "Override the iteration cap (0 keeps the default)")
	runCmd.Flags().Bool("json", false, "Print the full run result as JSON")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner")
}

// buildInitialState merges the --state JSON object with --set overrides.
func buildInitialState(stateJSON string, sets []string) (map[string]any, error) {
	initial := make(map[string]any)
	if stateJSON != "" {
		if err := json.Unmarshal([]byte(stateJSON), &initial); err != nil {
			return nil, fmt.Errorf("invalid --state: %w", err)
		}
	}
	for _, kv := range sets {
		key, raw, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", kv)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			// Unquoted strings are taken literally.
			value = raw
		}
		initial[key] = value
	}
	return initial, nil
}
