package contracts

// ResolutionStatus is the outcome state of one identifier resolution
type ResolutionStatus string

const (
	StatusResolved   ResolutionStatus = "resolved"
	StatusUnresolved ResolutionStatus = "unresolved"
	StatusSkipped    ResolutionStatus = "skipped"
)

// ResolutionSource tags which tier produced a resolved identifier.
// Sources are strictly ranked by confidence; the resolver tries them
// in tier order and the first hit wins.
type ResolutionSource string

const (
	SourceProvider  ResolutionSource = "provider"
	SourceManual    ResolutionSource = "manual"
	SourceCache     ResolutionSource = "cache"
	SourceCommunity ResolutionSource = "community"
	SourceWikidata  ResolutionSource = "api_wikidata"
	SourceFinnhub   ResolutionSource = "api_finnhub"
	SourceYahoo     ResolutionSource = "api_yahoo"

	// SourceDirect marks a direct position's own exposure in aggregation
	SourceDirect ResolutionSource = "direct"

	// SourceFund marks an undecomposed fund kept as its own exposure
	SourceFund ResolutionSource = "fund"
)

// Fixed confidence per resolution source. The local cache outranks the
// manual table because cache entries reflect prior successful
// multi-source resolution.
const (
	ConfidenceProvider  = 1.00
	ConfidenceCache     = 0.95
	ConfidenceCommunity = 0.90
	ConfidenceManual    = 0.85
	ConfidenceWikidata  = 0.80
	ConfidenceFinnhub   = 0.75
	ConfidenceYahoo     = 0.70
)

// SourceConfidence returns the fixed confidence for a resolution source
func SourceConfidence(s ResolutionSource) float64 {
	switch s {
	case SourceProvider, SourceDirect, SourceFund:
		return ConfidenceProvider
	case SourceCache:
		return ConfidenceCache
	case SourceCommunity:
		return ConfidenceCommunity
	case SourceManual:
		return ConfidenceManual
	case SourceWikidata:
		return ConfidenceWikidata
	case SourceFinnhub:
		return ConfidenceFinnhub
	case SourceYahoo:
		return ConfidenceYahoo
	default:
		return 0
	}
}

// ResolutionOutcome is attached to a holding row after identifier
// resolution.
//
// Invariants: StatusSkipped implies Confidence = 0 and empty CanonicalID;
// StatusResolved implies a non-empty CanonicalID.
type ResolutionOutcome struct {
	Status      ResolutionStatus `json:"status"`
	Source      ResolutionSource `json:"source,omitempty"`
	CanonicalID string           `json:"canonical_id,omitempty"`
	Confidence  float64          `json:"confidence"`
	Detail      string           `json:"detail,omitempty"`
}

// IsResolved reports whether a canonical id was assigned
func (r ResolutionOutcome) IsResolved() bool {
	return r.Status == StatusResolved
}
