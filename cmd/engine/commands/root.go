package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	weightsPath string
	verbose     bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "IC Score engine - quantitative scoring and backtesting",
	Long: `IC Score Engine

Computes a 1-100 composite score per ticker from weighted factor
scores, with lifecycle-aware weighting, sector-relative percentiles,
temporal smoothing, and change explanations. Ships a decile backtester
for validating the score's predictive power.

Usage:
  go run ./cmd/engine [command]

Examples:
  go run ./cmd/engine api
  go run ./cmd/engine score run
  go run ./cmd/engine sector refresh
  go run ./cmd/engine backtest --start 2022-01-01 --end 2024-12-31
  go run ./cmd/engine scheduler start`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&weightsPath, "weights", "", "weights YAML path (overrides ENGINE_WEIGHTS_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
