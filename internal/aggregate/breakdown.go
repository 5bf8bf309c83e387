package aggregate

import "github.com/wonny/xray/internal/contracts"

// BuildBreakdown flattens positions and decompositions into the
// holdings breakdown report: one row per (fund, holding) pair plus a
// synthetic 100% row per direct position.
func BuildBreakdown(
	positions []contracts.Position,
	decomps map[string]contracts.FundDecomposition,
	metadata map[string]contracts.Metadata,
) []contracts.BreakdownRow {
	var rows []contracts.BreakdownRow

	for _, p := range positions {
		if !p.IsFund() {
			id := idOrPlaceholder(p.ID, "", p.Name)
			row := contracts.BreakdownRow{
				ParentID:   contracts.DirectParentID,
				ParentName: "Direct holdings",
				ChildID:    id,
				ChildName:  p.Name,
				Weight:     100,
				Value:      p.MarketValue(),
				Status:     contracts.StatusResolved,
				Source:     contracts.SourceDirect,
				Confidence: contracts.SourceConfidence(contracts.SourceDirect),
			}
			applyMetadata(&row, metadata)
			rows = append(rows, row)
			continue
		}

		decomp, ok := decomps[p.ID]
		if !ok {
			continue
		}

		fundValue := p.MarketValue()
		for _, h := range decomp.Rows {
			id := h.Resolution.CanonicalID
			if !h.Resolution.IsResolved() {
				id = placeholderID(h.Ticker, h.Name)
			}
			row := contracts.BreakdownRow{
				ParentID:   p.ID,
				ParentName: p.Name,
				ChildID:    id,
				ChildName:  h.Name,
				Weight:     h.Weight,
				Value:      fundValue * h.Weight / 100,
				Status:     h.Resolution.Status,
				Source:     h.Resolution.Source,
				Confidence: h.Resolution.Confidence,
				Ticker:     h.Ticker,
			}
			applyMetadata(&row, metadata)
			rows = append(rows, row)
		}
	}

	return rows
}

func applyMetadata(row *contracts.BreakdownRow, metadata map[string]contracts.Metadata) {
	if meta, ok := metadata[row.ChildID]; ok {
		row.Sector = meta.Sector
		row.Geography = meta.Geography
	}
}
