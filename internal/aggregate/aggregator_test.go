package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

func direct(id, name string, value float64) contracts.Position {
	return contracts.Position{
		ID:         id,
		Name:       name,
		Quantity:   1,
		UnitPrice:  value,
		AssetClass: contracts.AssetDirect,
	}
}

func fund(id, name string, value float64) contracts.Position {
	return contracts.Position{
		ID:         id,
		Name:       name,
		Quantity:   1,
		UnitPrice:  value,
		AssetClass: contracts.AssetFund,
	}
}

func resolvedRow(ticker, name, id string, weight float64, src contracts.ResolutionSource) contracts.HoldingRow {
	return contracts.HoldingRow{
		Ticker: ticker,
		Name:   name,
		Weight: weight,
		Resolution: contracts.ResolutionOutcome{
			Status:      contracts.StatusResolved,
			Source:      src,
			CanonicalID: id,
			Confidence:  contracts.SourceConfidence(src),
		},
	}
}

func unresolvedRow(ticker, name string, weight float64) contracts.HoldingRow {
	return contracts.HoldingRow{
		Ticker: ticker,
		Name:   name,
		Weight: weight,
		Resolution: contracts.ResolutionOutcome{
			Status: contracts.StatusUnresolved,
		},
	}
}

func decompOf(fundID string, rows ...contracts.HoldingRow) map[string]contracts.FundDecomposition {
	return map[string]contracts.FundDecomposition{
		fundID: {FundID: fundID, Rows: rows},
	}
}

func findRecord(t *testing.T, records []contracts.ExposureRecord, id string) contracts.ExposureRecord {
	t.Helper()
	for _, r := range records {
		if r.CanonicalID == id {
			return r
		}
	}
	t.Fatalf("record %s not found", id)
	return contracts.ExposureRecord{}
}

func TestAggregateMergesDirectAndFundExposure(t *testing.T) {
	agg := New(logger.NewNop())

	// 1000 direct Apple plus a 2000 fund holding 10% Apple.
	positions := []contracts.Position{
		direct("US0378331005", "Apple Inc", 1000),
		fund("IE00B5BMR087", "Core S&P 500", 2000),
	}
	decomps := decompOf("IE00B5BMR087",
		resolvedRow("AAPL", "APPLE INC", "US0378331005", 10, contracts.SourceProvider),
		resolvedRow("MSFT", "MICROSOFT CORP", "US5949181045", 90, contracts.SourceProvider),
	)

	records, total := agg.Aggregate(positions, decomps, nil)

	assert.InDelta(t, 3000.0, total, 1e-9)

	apple := findRecord(t, records, "US0378331005")
	assert.InDelta(t, 1200.0, apple.TotalExposure, 1e-9)
	assert.InDelta(t, 40.0, apple.PortfolioPercent, 1e-9)
	assert.Equal(t, 2, apple.SourceCount)
	// The direct position outranks the provider-resolved holding on
	// equal confidence because its contribution is larger.
	assert.Equal(t, contracts.SourceDirect, apple.Source)
	assert.Equal(t, "Apple Inc", apple.Name)

	msft := findRecord(t, records, "US5949181045")
	assert.InDelta(t, 1800.0, msft.TotalExposure, 1e-9)
	assert.Equal(t, 1, msft.SourceCount)
}

func TestAggregateConservesValue(t *testing.T) {
	agg := New(logger.NewNop())

	positions := []contracts.Position{
		direct("US0378331005", "Apple Inc", 500),
		fund("IE00B4L5Y983", "Core World", 1500),
	}
	decomps := decompOf("IE00B4L5Y983",
		resolvedRow("AAPL", "APPLE INC", "US0378331005", 60, contracts.SourceCache),
		resolvedRow("NESN", "NESTLE SA", "CH0038863350", 25, contracts.SourceCommunity),
		unresolvedRow("XYZ1", "Mystery Holdings", 15),
	)

	records, total := agg.Aggregate(positions, decomps, nil)

	sum := 0.0
	pctSum := 0.0
	for _, r := range records {
		sum += r.TotalExposure
		pctSum += r.PortfolioPercent
	}
	assert.InDelta(t, total, sum, 1e-9)
	assert.InDelta(t, 100.0, pctSum, 1e-9)
}

func TestAggregateKeepsUndecomposedFund(t *testing.T) {
	agg := New(logger.NewNop())

	positions := []contracts.Position{
		fund("LU1681043599", "Amundi MSCI World", 4000),
	}

	records, total := agg.Aggregate(positions, nil, nil)

	require.Len(t, records, 1)
	assert.InDelta(t, 4000.0, total, 1e-9)
	assert.Equal(t, "LU1681043599", records[0].CanonicalID)
	assert.Equal(t, contracts.SourceFund, records[0].Source)
	assert.InDelta(t, 100.0, records[0].PortfolioPercent, 1e-9)
}

func TestAggregateMergesUnresolvedPlaceholders(t *testing.T) {
	agg := New(logger.NewNop())

	// The same unresolved ticker appearing in two funds merges into
	// one placeholder record.
	positions := []contracts.Position{
		fund("FUND000001", "Fund A", 1000),
		fund("FUND000002", "Fund B", 1000),
	}
	decomps := map[string]contracts.FundDecomposition{
		"FUND000001": {FundID: "FUND000001", Rows: []contracts.HoldingRow{
			unresolvedRow("OBSCURE", "Obscure Co", 100),
		}},
		"FUND000002": {FundID: "FUND000002", Rows: []contracts.HoldingRow{
			unresolvedRow("OBSCURE", "Obscure Co", 100),
		}},
	}

	records, _ := agg.Aggregate(positions, decomps, nil)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "UNRESOLVED:OBSCURE", r.CanonicalID)
	assert.True(t, r.IsUnresolved())
	assert.InDelta(t, 2000.0, r.TotalExposure, 1e-9)
	assert.Equal(t, 2, r.SourceCount)
	assert.Zero(t, r.Confidence)
}

func TestAggregateZeroTotalYieldsZeroPercent(t *testing.T) {
	agg := New(logger.NewNop())

	positions := []contracts.Position{
		direct("US0378331005", "Apple Inc", 0),
	}

	records, total := agg.Aggregate(positions, nil, nil)

	require.Len(t, records, 1)
	assert.Zero(t, total)
	assert.Zero(t, records[0].PortfolioPercent)
	assert.False(t, math.IsNaN(records[0].PortfolioPercent))
}

func TestAggregateHighestConfidenceWinsNameAndSource(t *testing.T) {
	agg := New(logger.NewNop())

	positions := []contracts.Position{
		fund("FUND000001", "Fund A", 1000),
		fund("FUND000002", "Fund B", 1000),
	}
	decomps := map[string]contracts.FundDecomposition{
		"FUND000001": {FundID: "FUND000001", Rows: []contracts.HoldingRow{
			resolvedRow("SAP", "SAP (Yahoo spelling)", "DE0007164600", 100, contracts.SourceYahoo),
		}},
		"FUND000002": {FundID: "FUND000002", Rows: []contracts.HoldingRow{
			resolvedRow("SAP", "SAP SE", "DE0007164600", 100, contracts.SourceProvider),
		}},
	}

	records, _ := agg.Aggregate(positions, decomps, nil)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "SAP SE", r.Name)
	assert.Equal(t, contracts.SourceProvider, r.Source)
	assert.InDelta(t, contracts.ConfidenceProvider, r.Confidence, 1e-9)
	assert.InDelta(t, 2000.0, r.TotalExposure, 1e-9)
}

func TestAggregateAttachesMetadata(t *testing.T) {
	agg := New(logger.NewNop())

	positions := []contracts.Position{
		direct("US0378331005", "Apple Inc", 1000),
	}
	metadata := map[string]contracts.Metadata{
		"US0378331005": {Sector: "Technology", Geography: "United States"},
	}

	records, _ := agg.Aggregate(positions, nil, metadata)

	require.Len(t, records, 1)
	assert.Equal(t, "Technology", records[0].Sector)
	assert.Equal(t, "United States", records[0].Geography)
}

func TestAggregateSortsByExposureDescending(t *testing.T) {
	agg := New(logger.NewNop())

	positions := []contracts.Position{
		direct("US0378331005", "Apple Inc", 100),
		direct("US5949181045", "Microsoft Corp", 300),
		direct("CH0038863350", "Nestle SA", 200),
	}

	records, _ := agg.Aggregate(positions, nil, nil)

	require.Len(t, records, 3)
	assert.Equal(t, "US5949181045", records[0].CanonicalID)
	assert.Equal(t, "CH0038863350", records[1].CanonicalID)
	assert.Equal(t, "US0378331005", records[2].CanonicalID)
}

func TestPlaceholderID(t *testing.T) {
	tests := []struct {
		ticker string
		name   string
		want   string
	}{
		{"OBSCURE", "", "UNRESOLVED:OBSCURE"},
		{"", "Some Private Co.", "UNRESOLVED:SOME-PRIVATE-CO"},
		{"", "  weird   spaces  ", "UNRESOLVED:WEIRD-SPACES"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, placeholderID(tt.ticker, tt.name))
	}
}

func TestBuildBreakdown(t *testing.T) {
	positions := []contracts.Position{
		direct("US0378331005", "Apple Inc", 1000),
		fund("IE00B5BMR087", "Core S&P 500", 2000),
	}
	decomps := decompOf("IE00B5BMR087",
		resolvedRow("MSFT", "MICROSOFT CORP", "US5949181045", 90, contracts.SourceProvider),
		unresolvedRow("XYZ1", "Mystery Holdings", 10),
	)
	metadata := map[string]contracts.Metadata{
		"US5949181045": {Sector: "Technology", Geography: "United States"},
	}

	rows := BuildBreakdown(positions, decomps, metadata)
	require.Len(t, rows, 3)

	directRow := rows[0]
	assert.Equal(t, contracts.DirectParentID, directRow.ParentID)
	assert.Equal(t, "US0378331005", directRow.ChildID)
	assert.InDelta(t, 100.0, directRow.Weight, 1e-9)
	assert.InDelta(t, 1000.0, directRow.Value, 1e-9)

	msft := rows[1]
	assert.Equal(t, "IE00B5BMR087", msft.ParentID)
	assert.Equal(t, "US5949181045", msft.ChildID)
	assert.InDelta(t, 1800.0, msft.Value, 1e-9)
	assert.Equal(t, "Technology", msft.Sector)

	unres := rows[2]
	assert.Equal(t, "UNRESOLVED:XYZ1", unres.ChildID)
	assert.Equal(t, contracts.StatusUnresolved, unres.Status)
	assert.InDelta(t, 200.0, unres.Value, 1e-9)
}

func TestBuildBreakdownSkipsUndecomposedFunds(t *testing.T) {
	positions := []contracts.Position{
		fund("LU1681043599", "Amundi MSCI World", 4000),
	}

	rows := BuildBreakdown(positions, nil, nil)
	assert.Empty(t, rows)
}
