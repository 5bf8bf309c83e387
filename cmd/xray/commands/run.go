package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/xray/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the exposure pipeline once",
	Long: `Runs one full pipeline pass for a portfolio and prints the
resulting exposure table, data quality score and report locations.

Example:
  go run ./cmd/xray run
  go run ./cmd/xray run --portfolio main --top 30`,
	RunE: runPipeline,
}

var (
	runPortfolioID string
	runTopN        int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runPortfolioID, "portfolio", "main", "portfolio id to process")
	runCmd.Flags().IntVar(&runTopN, "top", 20, "number of exposure rows to print")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	d, err := initDeps(printProgress)
	if err != nil {
		return err
	}
	defer d.Close()

	result, err := d.orchestrator.Run(context.Background(), runPortfolioID)
	if err != nil && result == nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	printRunSummary(result, runTopN)

	if !result.Success {
		return fmt.Errorf("pipeline run %s failed", result.RunID)
	}
	return nil
}

// printProgress emits a single line per phase boundary
func printProgress(phase contracts.Phase, pct float64) {
	if pct == 0 {
		fmt.Printf("[%-9s] started\n", phase)
	} else if pct >= 100 {
		fmt.Printf("[%-9s] done\n", phase)
	}
}
