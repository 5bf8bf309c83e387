package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/xray/internal/resolve"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve [ticker] [name]",
	Short: "Resolve one identifier through the tier chain",
	Long: `Runs a single ticker/name pair through the full resolution
chain and prints which tier answered. Useful for debugging why a
holding ends up unresolved.

Example:
  go run ./cmd/xray resolve AAPL
  go run ./cmd/xray resolve AAPL "Apple Inc"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: resolveIdentifier,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func resolveIdentifier(cmd *cobra.Command, args []string) error {
	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	req := resolve.Request{Ticker: args[0], Weight: 100}
	if len(args) > 1 {
		req.Name = args[1]
	}

	outcome := d.resolver.Resolve(context.Background(), req)

	printHeader(fmt.Sprintf("Resolution of %q", args[0]))
	fmt.Printf("  Status     : %s\n", outcome.Status)
	if outcome.CanonicalID != "" {
		fmt.Printf("  Canonical  : %s\n", outcome.CanonicalID)
		fmt.Printf("  Source     : %s\n", outcome.Source)
		fmt.Printf("  Confidence : %.2f\n", outcome.Confidence)
	}
	fmt.Println()
	return nil
}
