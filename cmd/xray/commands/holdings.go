package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// holdingsCmd represents the holdings command group
var holdingsCmd = &cobra.Command{
	Use:   "holdings",
	Short: "Inspect fund holdings",
	Long: `Fetches one fund's holdings through the full tier chain
(cache, community, provider adapter, manual upload) and prints the
raw composition table.

Example:
  go run ./cmd/xray holdings fetch IE00B4L5Y983`,
}

var holdingsFetchCmd = &cobra.Command{
	Use:   "fetch [fund_id]",
	Short: "Fetch one fund's holdings through the tier chain",
	Args:  cobra.ExactArgs(1),
	RunE:  fetchHoldings,
}

func init() {
	rootCmd.AddCommand(holdingsCmd)
	holdingsCmd.AddCommand(holdingsFetchCmd)
}

func fetchHoldings(cmd *cobra.Command, args []string) error {
	fundID := args[0]

	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	table, err := d.decomposer.GetHoldings(context.Background(), fundID)
	if err != nil {
		return fmt.Errorf("fetch holdings for %s: %w", fundID, err)
	}

	printHeader(fmt.Sprintf("Holdings of %s (source: %s, rows: %d)", table.FundID, table.Source, len(table.Rows)))
	fmt.Printf("  %-10s %-32s %8s  %s\n", "TICKER", "NAME", "WEIGHT", "PROVIDER ID")
	for _, row := range table.Rows {
		name := row.Name
		if len(name) > 32 {
			name = name[:29] + "..."
		}
		fmt.Printf("  %-10s %-32s %7.2f%%  %s\n", row.Ticker, name, row.Weight, row.ProviderID)
	}
	fmt.Printf("\n  Weight sum: %.2f%%\n\n", table.WeightSum())
	return nil
}
