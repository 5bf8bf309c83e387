package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/xray/internal/contracts"
)

// positionsCmd represents the positions command group
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Manage portfolio positions",
	Long: `Imports and lists the brokerage positions the pipeline runs on.

The import file is a JSON array of positions:
  [{"id":"US0378331005","name":"Apple Inc","quantity":10,
    "unit_price":180,"currency":"EUR","asset_class":"direct"}]

Example:
  go run ./cmd/xray positions import portfolio.json
  go run ./cmd/xray positions list`,
}

var (
	positionsPortfolioID string

	positionsImportCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Replace a portfolio's positions from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  importPositions,
	}

	positionsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List a portfolio's positions",
		RunE:  listPositions,
	}
)

func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.AddCommand(positionsImportCmd)
	positionsCmd.AddCommand(positionsListCmd)

	positionsCmd.PersistentFlags().StringVar(&positionsPortfolioID, "portfolio", "main", "portfolio id")
}

func importPositions(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read positions file: %w", err)
	}

	var positions []contracts.Position
	if err := json.Unmarshal(data, &positions); err != nil {
		return fmt.Errorf("parse positions file: %w", err)
	}
	if len(positions) == 0 {
		return fmt.Errorf("positions file %s is empty", args[0])
	}

	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.positions.SavePositions(context.Background(), positionsPortfolioID, positions); err != nil {
		return fmt.Errorf("save positions: %w", err)
	}

	fmt.Printf("Imported %d positions into portfolio %s\n", len(positions), positionsPortfolioID)
	return nil
}

func listPositions(cmd *cobra.Command, args []string) error {
	d, err := initDeps(nil)
	if err != nil {
		return err
	}
	defer d.Close()

	positions, err := d.positions.GetPositions(context.Background(), positionsPortfolioID)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	printHeader(fmt.Sprintf("Portfolio %s (%d positions)", positionsPortfolioID, len(positions)))
	fmt.Printf("  %-14s %-28s %10s %10s %8s  %s\n", "ID", "NAME", "QTY", "PRICE", "CCY", "CLASS")
	total := 0.0
	for _, p := range positions {
		name := p.Name
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		fmt.Printf("  %-14s %-28s %10.2f %10.2f %8s  %s\n",
			p.ID, name, p.Quantity, p.UnitPrice, p.Currency, p.AssetClass)
		total += p.MarketValue()
	}
	fmt.Printf("\n  Total value: %.2f\n\n", total)
	return nil
}
