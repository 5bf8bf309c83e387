package contracts

import "time"

// HoldingsSource tags which tier supplied a fund's raw holdings table
type HoldingsSource string

const (
	HoldingsFromCache     HoldingsSource = "cache"
	HoldingsFromCommunity HoldingsSource = "community"
	HoldingsFromAdapter   HoldingsSource = "adapter"
	HoldingsFromManual    HoldingsSource = "manual"
)

// HoldingRow is one line inside a fund's composition. Produced by the
// decomposer's holdings lookup and augmented in place with the
// resolution outcome during identifier resolution.
type HoldingRow struct {
	RawTicker  string  `json:"raw_ticker"`
	Ticker     string  `json:"ticker"` // cleaned
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"` // percent of fund, nominally summing to ~100
	ProviderID string  `json:"provider_id,omitempty"`

	Resolution ResolutionOutcome `json:"resolution"`
}

// HoldingsTable is a fund's raw composition as supplied by one tier
type HoldingsTable struct {
	FundID    string         `json:"fund_id"`
	Rows      []HoldingRow   `json:"rows"`
	Source    HoldingsSource `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// WeightSum returns the sum of all row weights
func (t *HoldingsTable) WeightSum() float64 {
	sum := 0.0
	for _, row := range t.Rows {
		sum += row.Weight
	}
	return sum
}

// FundDecomposition is one fund's resolved composition, built once per
// pipeline run per fund. WeightSum is computed after weight-format
// normalization and is the primary signal consumed by validation.
type FundDecomposition struct {
	FundID    string         `json:"fund_id"`
	FundName  string         `json:"fund_name"`
	FundValue float64        `json:"fund_value"`
	Rows      []HoldingRow   `json:"rows"`
	Source    HoldingsSource `json:"source"`

	WeightSum       float64 `json:"weight_sum"`
	ResolvedCount   int     `json:"resolved_count"`
	UnresolvedCount int     `json:"unresolved_count"`
	SkippedCount    int     `json:"skipped_count"`
}

// HoldingsCount returns the number of rows
func (d *FundDecomposition) HoldingsCount() int {
	return len(d.Rows)
}

// ResolutionRate returns the fraction of rows with an assigned id,
// in [0,1]. Skipped rows count against the rate.
func (d *FundDecomposition) ResolutionRate() float64 {
	if len(d.Rows) == 0 {
		return 0
	}
	return float64(d.ResolvedCount) / float64(len(d.Rows))
}
