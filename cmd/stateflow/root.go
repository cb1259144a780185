package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow/internal/config"
	"github.com/aretw0/stateflow/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "stateflow",
	Short: "Stateflow is a deterministic workflow-graph interpreter",
	Long: `Stateflow runs directed workflow graphs: nodes transform a shared
key-value state, predicate-guarded edges route execution, and every run
produces an auditable step log.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")

		slog.SetDefault(logging.New(logging.ParseLevel(levelName), format))
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

// loadSettings resolves config for the current invocation: defaults, then
// the --config file, then STATEFLOW_* environment variables.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
