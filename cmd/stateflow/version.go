package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stateflow",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("stateflow version %s\n", stateflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
