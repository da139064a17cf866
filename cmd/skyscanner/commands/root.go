package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skyscanner",
		Short: "Skyscanner flight price search engine",
		Long: `Searches flight prices over whole date windows and trip-length ranges
through the Skyscanner live-search API.

Features:
  - Journey definitions with date windows and trip-length ranges
  - Shared rate-limit cooldown across create and poll requests
  - Fastest/cheapest itinerary selection per route
  - Price-per-travel-day rating, sorted and grouped results
  - Optional run history persisted to SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newRoutesCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
