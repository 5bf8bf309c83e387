package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xray",
	Short: "Portfolio look-through exposure pipeline",
	Long: `xray computes the true exposure of a portfolio by decomposing
fund positions into their underlying holdings, resolving noisy
identifiers to canonical security ids and aggregating everything
into a single exposure table.

Usage:
  go run ./cmd/xray [command]

Examples:
  go run ./cmd/xray run
  go run ./cmd/xray api
  go run ./cmd/xray resolve AAPL "Apple Inc"
  go run ./cmd/xray holdings fetch IE00B4L5Y983`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
