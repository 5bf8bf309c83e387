package holdings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/xray/internal/contracts"
)

// ParseWeight parses a holding weight from the loose formats seen in
// provider files: "4.25", "4.25%", "4,25" (comma decimals), padded
// whitespace. The fraction-vs-percent question is not decided here;
// the decomposer's sum heuristic owns that.
func ParseWeight(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty weight")
	}

	// Comma decimal separators appear in European provider files.
	// Only swap when there is no dot, so "1,234.56" stays sane.
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse weight %q: %w", raw, err)
	}
	return w, nil
}

// CleanRows drops rows that carry no usable identity (no ticker, no
// name, no provider id) such as disclaimer lines and cash-total rows
// that leak into provider exports.
func CleanRows(rows []contracts.HoldingRow) []contracts.HoldingRow {
	out := rows[:0]
	for _, row := range rows {
		row.RawTicker = strings.TrimSpace(row.RawTicker)
		row.Ticker = strings.TrimSpace(row.Ticker)
		row.Name = strings.TrimSpace(row.Name)
		row.ProviderID = strings.TrimSpace(row.ProviderID)
		if row.RawTicker == "" && row.Ticker == "" && row.Name == "" && row.ProviderID == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}
