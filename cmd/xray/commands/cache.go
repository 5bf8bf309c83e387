package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command group
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the holdings cache",
	Long: `Shows statistics for the local fund-holdings cache and drops
stale entries.

Example:
  go run ./cmd/xray cache stats
  go run ./cmd/xray cache invalidate IE00B4L5Y983`,
}

var (
	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show holdings cache statistics",
		RunE:  showCacheStats,
	}

	cacheInvalidateCmd = &cobra.Command{
		Use:   "invalidate [fund_id]",
		Short: "Drop one fund's cached holdings",
		Args:  cobra.ExactArgs(1),
		RunE:  invalidateCachedFund,
	}
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}

func showCacheStats(cmd *cobra.Command, args []string) error {
	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	stats, err := d.holdingsCache.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("read cache stats: %w", err)
	}

	printHeader("Holdings cache")
	fmt.Printf("  Funds        : %d\n", stats.Funds)
	fmt.Printf("  Rows         : %d\n", stats.Rows)
	if !stats.OldestFetch.IsZero() {
		fmt.Printf("  Oldest fetch : %s\n", stats.OldestFetch.Format("2006-01-02 15:04"))
		fmt.Printf("  Newest fetch : %s\n", stats.NewestFetch.Format("2006-01-02 15:04"))
	}
	fmt.Println()
	return nil
}

func invalidateCachedFund(cmd *cobra.Command, args []string) error {
	fundID := args[0]

	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.holdingsCache.Invalidate(context.Background(), fundID); err != nil {
		return fmt.Errorf("invalidate %s: %w", fundID, err)
	}

	fmt.Printf("Invalidated cached holdings for %s\n", fundID)
	return nil
}
