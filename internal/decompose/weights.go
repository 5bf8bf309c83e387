package decompose

import "github.com/wonny/xray/internal/contracts"

// normalizeWeights detects whether a fund's holdings weights are
// expressed as fractions (summing near 1) instead of percentages
// (summing near 100) and rescales fractions x100.
//
// The heuristic is best-effort: a 2-holding fund legitimately weighted
// 1% + 99% in percent terms is indistinguishable from fractional
// format. The decompose gate re-checks the post-normalization sum, so
// a wrong guess surfaces as a critical weight issue instead of a
// silent ~100x value error.
func normalizeWeights(rows []contracts.HoldingRow) (rescaled bool) {
	sum := 0.0
	for _, row := range rows {
		sum += row.Weight
	}

	if sum > 0 && sum < 2 {
		for i := range rows {
			rows[i].Weight *= 100
		}
		return true
	}
	return false
}
