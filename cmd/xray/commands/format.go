package commands

import (
	"fmt"

	"github.com/wonny/xray/internal/contracts"
)

// Common formatting utilities so every command prints the same shapes.

const ruleLine = "───────────────────────────────────────────────────────────"

// printHeader prints a section header
func printHeader(title string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	fmt.Println(ruleLine)
}

// printRunSummary prints the outcome of one pipeline run
func printRunSummary(result *contracts.PipelineResult, topN int) {
	printHeader(fmt.Sprintf("Run %s", result.RunID))
	fmt.Printf("  Success   : %v\n", result.Success)
	fmt.Printf("  Duration  : %.2fs\n", result.Duration().Seconds())
	fmt.Printf("  Total     : %.2f\n", result.TotalValue)
	if result.Quality != nil {
		fmt.Printf("  Quality   : %.2f (trustworthy: %v, issues: %d)\n",
			result.Quality.Score, result.Quality.IsTrustworthy(), len(result.Quality.Issues))
	}
	fmt.Printf("  Errors    : %d\n", len(result.Errors))

	if len(result.Exposures) > 0 {
		printHeader(fmt.Sprintf("Top exposures (%d of %d)", min(topN, len(result.Exposures)), len(result.Exposures)))
		fmt.Printf("  %-14s %-28s %12s %7s %6s  %s\n",
			"ID", "NAME", "VALUE", "PCT", "CONF", "SOURCE")
		for i, e := range result.Exposures {
			if i >= topN {
				break
			}
			name := e.Name
			if len(name) > 28 {
				name = name[:25] + "..."
			}
			fmt.Printf("  %-14s %-28s %12.2f %6.2f%% %6.2f  %s\n",
				e.CanonicalID, name, e.TotalExposure, e.PortfolioPercent, e.Confidence, e.Source)
		}
	}

	if result.Quality != nil && len(result.Quality.Issues) > 0 {
		printHeader("Quality issues")
		for _, issue := range result.Quality.Issues {
			fmt.Printf("  [%-8s] %-24s %s\n", issue.Severity, issue.Code, issue.Message)
		}
	}

	fmt.Println()
}
