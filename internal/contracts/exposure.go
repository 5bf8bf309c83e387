package contracts

// DirectParentID is the reserved parent sentinel for direct positions
// in the holdings breakdown report.
const DirectParentID = "DIRECT"

// UnresolvedIDPrefix prefixes placeholder ids for unresolved holdings
// so they stay visible in the report without merging into a real
// security.
const UnresolvedIDPrefix = "UNRESOLVED:"

// ExposureRecord is the aggregation unit: one record per distinct
// canonical id in the final report.
type ExposureRecord struct {
	CanonicalID      string           `json:"canonical_id"`
	Name             string           `json:"name"`
	Sector           string           `json:"sector,omitempty"`
	Geography        string           `json:"geography,omitempty"`
	TotalExposure    float64          `json:"total_exposure"`
	PortfolioPercent float64          `json:"portfolio_percent"`
	Confidence       float64          `json:"confidence"`
	Source           ResolutionSource `json:"source"`
	SourceCount      int              `json:"source_count"`
}

// IsUnresolved reports whether the record aggregates unresolved rows
func (r ExposureRecord) IsUnresolved() bool {
	return len(r.CanonicalID) > len(UnresolvedIDPrefix) &&
		r.CanonicalID[:len(UnresolvedIDPrefix)] == UnresolvedIDPrefix
}

// BreakdownRow is one line of the holdings breakdown report: one row
// per (fund, holding) pair plus one synthetic row per direct position
// with ParentID = DirectParentID.
type BreakdownRow struct {
	ParentID   string           `json:"parent_id"`
	ParentName string           `json:"parent_name"`
	ChildID    string           `json:"child_id"`
	ChildName  string           `json:"child_name"`
	Weight     float64          `json:"weight_percent"`
	Value      float64          `json:"value"`
	Sector     string           `json:"sector,omitempty"`
	Geography  string           `json:"geography,omitempty"`
	Status     ResolutionStatus `json:"resolution_status"`
	Source     ResolutionSource `json:"resolution_source,omitempty"`
	Confidence float64          `json:"resolution_confidence"`
	Ticker     string           `json:"ticker,omitempty"`
}

// Metadata is sector/geography/asset-class info attached to a
// canonical id during enrichment.
type Metadata struct {
	Sector     string `json:"sector,omitempty"`
	Geography  string `json:"geography,omitempty"`
	AssetClass string `json:"asset_class,omitempty"`
}

// IsEmpty reports whether no field is populated
func (m Metadata) IsEmpty() bool {
	return m.Sector == "" && m.Geography == "" && m.AssetClass == ""
}
