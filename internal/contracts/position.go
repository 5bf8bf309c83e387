package contracts

// AssetClass classifies a brokerage position
type AssetClass string

const (
	AssetDirect  AssetClass = "direct"
	AssetFund    AssetClass = "fund"
	AssetUnknown AssetClass = "unknown"
)

// Position is a direct or fund holding owned by the user.
// Created by the position source; immutable input to the pipeline.
type Position struct {
	ID         string     `json:"id"` // canonical security id, may be empty
	Name       string     `json:"name"`
	Quantity   float64    `json:"quantity"`
	UnitPrice  float64    `json:"unit_price"`
	Currency   string     `json:"currency"`
	AssetClass AssetClass `json:"asset_class"`
}

// MarketValue returns quantity x unit price
func (p Position) MarketValue() float64 {
	return p.Quantity * p.UnitPrice
}

// IsFund reports whether the position is a fund wrapper
func (p Position) IsFund() bool {
	return p.AssetClass == AssetFund
}
