package main

import (
	"github.com/spf13/cobra"
)

// Global flag values.
var (
	flagConfig string
	flagAddr   string
	flagDev    bool
)

var rootCmd = &cobra.Command{
	Use:   "railnode",
	Short: "Railnode serves CRUD APIs over configurable storage backends",
	Long: `Railnode reads entity declarations from a config file, binds a uniform
set of CRUD routes for each entity, and persists records through one of four
interchangeable storage backends: memory, file, relational, or document.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: railnode.yaml in the working directory)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
