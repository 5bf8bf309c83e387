package contracts

import (
	"context"
	"time"
)

// Collaborator interfaces consumed by the pipeline. Implementations
// live in internal/store, internal/community, internal/adapters and
// internal/external; tests substitute in-memory fakes.

// PositionSource loads the user's brokerage positions
type PositionSource interface {
	GetPositions(ctx context.Context, portfolioID string) ([]Position, error)
}

// HoldingsCache is the local persistent fund-holdings cache
type HoldingsCache interface {
	// Get returns the cached table if present and fresher than maxAge
	Get(ctx context.Context, fundID string, maxAge time.Duration) (*HoldingsTable, bool, error)
	Put(ctx context.Context, table *HoldingsTable) error
	Invalidate(ctx context.Context, fundID string) error
	// StaleFunds lists fund ids whose cached table is older than maxAge
	StaleFunds(ctx context.Context, maxAge time.Duration) ([]string, error)
	Stats(ctx context.Context) (CacheStats, error)
}

// CacheStats summarizes the holdings cache contents
type CacheStats struct {
	Funds       int       `json:"funds"`
	Rows        int       `json:"rows"`
	OldestFetch time.Time `json:"oldest_fetch"`
	NewestFetch time.Time `json:"newest_fetch"`
}

// IdentifierCache is the local persistent ticker/name → canonical id
// cache populated by prior successful resolutions.
type IdentifierCache interface {
	GetByTicker(ctx context.Context, ticker string) (string, bool, error)
	GetByName(ctx context.Context, name string) (string, bool, error)
	Put(ctx context.Context, ticker, name, canonicalID string, source ResolutionSource) error
	GetMetadata(ctx context.Context, canonicalID string) (*Metadata, bool, error)
	PutMetadata(ctx context.Context, canonicalID string, meta Metadata) error
}

// NegativeCache remembers identifiers that recently failed to resolve
// so repeat misses skip the external API tiers.
type NegativeCache interface {
	IsNegative(ctx context.Context, key string) bool
	MarkNegative(ctx context.Context, key string, ttl time.Duration)
}

// CommunityService is the shared lookup network
type CommunityService interface {
	GetFundHoldings(ctx context.Context, fundID string) (*HoldingsTable, bool, error)
	LookupTicker(ctx context.Context, ticker string) (string, bool, error)
	LookupName(ctx context.Context, name string) (string, bool, error)
	ContributeHoldings(ctx context.Context, table *HoldingsTable) error
	ContributeIdentifier(ctx context.Context, ticker, canonicalID string) error
	GetMetadataBatch(ctx context.Context, ids []string) (map[string]Metadata, error)
}

// ProviderAdapter fetches a fund's raw holdings from its provider
type ProviderAdapter interface {
	Name() string
	Supports(fundID string) bool
	FetchHoldings(ctx context.Context, fundID string) (*HoldingsTable, error)
}

// AdapterRegistry selects a provider adapter by fund id
type AdapterRegistry interface {
	GetAdapter(fundID string) (ProviderAdapter, bool)
}

// ManualUploadStore serves user-supplied holdings files
type ManualUploadStore interface {
	Get(ctx context.Context, fundID string) (*HoldingsTable, bool, error)
}

// ResolutionAPI is one ranked external identifier lookup service
type ResolutionAPI interface {
	Name() string
	Source() ResolutionSource
	Lookup(ctx context.Context, ticker, name string) (string, bool, error)
}

// MetadataAPI is a fallback sector/geography lookup service
type MetadataAPI interface {
	Name() string
	Lookup(ctx context.Context, canonicalID string) (*Metadata, bool, error)
}
