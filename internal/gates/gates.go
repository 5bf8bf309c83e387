package gates

import (
	"fmt"

	"github.com/wonny/xray/internal/contracts"
)

// Machine codes for quality issues. Codes are stable identifiers
// consumed by the health report and by tests; messages are free text.
const (
	CodeNoPositions       = "NO_POSITIONS"
	CodeZeroValuePosition = "ZERO_VALUE_POSITION"
	CodeNonBaseCurrency   = "NON_BASE_CURRENCY"
	CodeUnknownAssetClass = "UNKNOWN_ASSET_CLASS"

	CodeNoHoldings             = "NO_HOLDINGS"
	CodeWeightDecimalFormat    = "WEIGHT_DECIMAL_FORMAT"
	CodeWeightSumVeryLow       = "WEIGHT_SUM_VERY_LOW"
	CodeWeightSumLow           = "WEIGHT_SUM_LOW"
	CodeWeightSumHigh          = "WEIGHT_SUM_HIGH"
	CodeNegativeWeights        = "NEGATIVE_WEIGHTS"
	CodeLowResolutionRate      = "LOW_RESOLUTION_RATE"
	CodeModerateResolutionRate = "MODERATE_RESOLUTION_RATE"

	CodeLowSectorCoverage    = "LOW_SECTOR_COVERAGE"
	CodeLowGeographyCoverage = "LOW_GEOGRAPHY_COVERAGE"

	CodeTotalMismatchLarge = "TOTAL_MISMATCH_LARGE"
	CodeTotalMismatch      = "TOTAL_MISMATCH"
	CodePercentageSumLow   = "PERCENTAGE_SUM_LOW"
	CodePercentageSumHigh  = "PERCENTAGE_SUM_HIGH"
	CodeZeroPortfolioValue = "ZERO_PORTFOLIO_VALUE"
)

// CheckLoad validates the position list produced by the load phase.
// baseCurrency is the portfolio's reporting currency; positions in any
// other currency are flagged because conversion is not implemented.
func CheckLoad(positions []contracts.Position, baseCurrency string) []contracts.QualityIssue {
	var issues []contracts.QualityIssue

	if len(positions) == 0 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityHigh,
			Category: contracts.CategorySchema,
			Code:     CodeNoPositions,
			Message:  "no positions loaded",
			FixHint:  "check the position source connection",
			Phase:    contracts.PhaseLoad,
		})
		return issues
	}

	for _, p := range positions {
		if p.MarketValue() <= 0 {
			issues = append(issues, contracts.QualityIssue{
				Severity: contracts.SeverityMedium,
				Category: contracts.CategoryValue,
				Code:     CodeZeroValuePosition,
				Message:  fmt.Sprintf("position %s has non-positive market value %.2f", p.Name, p.MarketValue()),
				ItemID:   p.ID,
				Phase:    contracts.PhaseLoad,
			})
		}
		if p.Currency != "" && p.Currency != baseCurrency {
			issues = append(issues, contracts.QualityIssue{
				Severity: contracts.SeverityHigh,
				Category: contracts.CategoryCurrency,
				Code:     CodeNonBaseCurrency,
				Message:  fmt.Sprintf("position %s is denominated in %s, conversion to %s is not implemented", p.Name, p.Currency, baseCurrency),
				ItemID:   p.ID,
				Phase:    contracts.PhaseLoad,
			})
		}
		if p.AssetClass == contracts.AssetUnknown || p.AssetClass == "" {
			issues = append(issues, contracts.QualityIssue{
				Severity: contracts.SeverityLow,
				Category: contracts.CategorySchema,
				Code:     CodeUnknownAssetClass,
				Message:  fmt.Sprintf("position %s has unknown asset classification", p.Name),
				ItemID:   p.ID,
				Phase:    contracts.PhaseLoad,
			})
		}
	}

	return issues
}

// CheckDecompose validates one fund's decomposition.
//
// The weight checks grade the post-normalization weight sum. A sum in
// (0.5, 1.5) means the fraction-vs-percent heuristic failed and every
// derived value will be roughly 100x wrong, so it outranks the generic
// very-low check even though both ranges overlap.
func CheckDecompose(d contracts.FundDecomposition) []contracts.QualityIssue {
	var issues []contracts.QualityIssue

	if len(d.Rows) == 0 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityHigh,
			Category: contracts.CategorySchema,
			Code:     CodeNoHoldings,
			Message:  fmt.Sprintf("fund %s decomposed into zero holdings", d.FundID),
			FixHint:  "upload holdings manually",
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
		return issues
	}

	sum := d.WeightSum
	switch {
	case sum > 0.5 && sum < 1.5:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityCritical,
			Category: contracts.CategoryWeight,
			Code:     CodeWeightDecimalFormat,
			Message:  fmt.Sprintf("fund %s weight sum %.4f looks like undetected fraction format, exposure values will be ~100x wrong", d.FundID, sum),
			FixHint:  "verify the holdings source weight units",
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
	case sum < 50:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityCritical,
			Category: contracts.CategoryWeight,
			Code:     CodeWeightSumVeryLow,
			Message:  fmt.Sprintf("fund %s weight sum %.2f%% covers less than half the fund", d.FundID, sum),
			FixHint:  "holdings table is likely truncated",
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
	case sum < 90:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityHigh,
			Category: contracts.CategoryWeight,
			Code:     CodeWeightSumLow,
			Message:  fmt.Sprintf("fund %s weight sum %.2f%% is incomplete", d.FundID, sum),
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
	case sum > 110:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityMedium,
			Category: contracts.CategoryWeight,
			Code:     CodeWeightSumHigh,
			Message:  fmt.Sprintf("fund %s weight sum %.2f%% exceeds 110%%, leverage or derivatives plausible", d.FundID, sum),
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
	}

	negatives := 0
	for _, row := range d.Rows {
		if row.Weight < 0 {
			negatives++
		}
	}
	if negatives > 0 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityMedium,
			Category: contracts.CategoryWeight,
			Code:     CodeNegativeWeights,
			Message:  fmt.Sprintf("fund %s has %d negative-weight holdings, likely short positions", d.FundID, negatives),
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
	}

	rate := d.ResolutionRate()
	switch {
	case rate < 0.5:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityHigh,
			Category: contracts.CategoryResolution,
			Code:     CodeLowResolutionRate,
			Message:  fmt.Sprintf("fund %s resolved only %.0f%% of holdings", d.FundID, rate*100),
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
	case rate < 0.8:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityMedium,
			Category: contracts.CategoryResolution,
			Code:     CodeModerateResolutionRate,
			Message:  fmt.Sprintf("fund %s resolved %.0f%% of holdings", d.FundID, rate*100),
			ItemID:   d.FundID,
			Phase:    contracts.PhaseDecompose,
		})
	}

	return issues
}

// CheckEnrich validates metadata coverage over the resolved ids
func CheckEnrich(total, withSector, withGeography int) []contracts.QualityIssue {
	var issues []contracts.QualityIssue
	if total == 0 {
		return issues
	}

	if float64(withSector)/float64(total) < 0.5 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityMedium,
			Category: contracts.CategoryEnrichment,
			Code:     CodeLowSectorCoverage,
			Message:  fmt.Sprintf("sector known for only %d of %d securities", withSector, total),
			Phase:    contracts.PhaseEnrich,
		})
	}
	if float64(withGeography)/float64(total) < 0.5 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityMedium,
			Category: contracts.CategoryEnrichment,
			Code:     CodeLowGeographyCoverage,
			Message:  fmt.Sprintf("geography known for only %d of %d securities", withGeography, total),
			Phase:    contracts.PhaseEnrich,
		})
	}

	return issues
}

// CheckAggregate reconciles the aggregated exposure table against the
// independently-computed total portfolio value.
func CheckAggregate(records []contracts.ExposureRecord, totalValue float64) []contracts.QualityIssue {
	var issues []contracts.QualityIssue

	if totalValue == 0 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityHigh,
			Category: contracts.CategoryValue,
			Code:     CodeZeroPortfolioValue,
			Message:  "total portfolio value is zero",
			Phase:    contracts.PhaseAggregate,
		})
		return issues
	}

	exposureSum := 0.0
	pctSum := 0.0
	for _, r := range records {
		exposureSum += r.TotalExposure
		pctSum += r.PortfolioPercent
	}

	diff := exposureSum - totalValue
	if diff < 0 {
		diff = -diff
	}
	diffPct := diff / totalValue * 100

	switch {
	case diffPct > 10:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityCritical,
			Category: contracts.CategoryValue,
			Code:     CodeTotalMismatchLarge,
			Message:  fmt.Sprintf("aggregated exposure %.2f deviates %.1f%% from portfolio value %.2f", exposureSum, diffPct, totalValue),
			FixHint:  "check fund weight sums and decomposition failures",
			Phase:    contracts.PhaseAggregate,
		})
	case diffPct > 1:
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityHigh,
			Category: contracts.CategoryValue,
			Code:     CodeTotalMismatch,
			Message:  fmt.Sprintf("aggregated exposure %.2f deviates %.1f%% from portfolio value %.2f", exposureSum, diffPct, totalValue),
			Phase:    contracts.PhaseAggregate,
		})
	}

	if pctSum < 95 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityHigh,
			Category: contracts.CategoryValue,
			Code:     CodePercentageSumLow,
			Message:  fmt.Sprintf("portfolio percentages sum to %.2f%%", pctSum),
			Phase:    contracts.PhaseAggregate,
		})
	} else if pctSum > 105 {
		issues = append(issues, contracts.QualityIssue{
			Severity: contracts.SeverityMedium,
			Category: contracts.CategoryValue,
			Code:     CodePercentageSumHigh,
			Message:  fmt.Sprintf("portfolio percentages sum to %.2f%%", pctSum),
			Phase:    contracts.PhaseAggregate,
		})
	}

	return issues
}
