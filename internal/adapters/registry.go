package adapters

import (
	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// Registry selects the provider adapter responsible for a fund id.
// First match wins; adapters register in priority order.
type Registry struct {
	adapters []contracts.ProviderAdapter
	logger   *logger.Logger
}

// NewRegistry builds the default registry with all known providers
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		adapters: []contracts.ProviderAdapter{
			NewIShares(log),
			NewVanguard(log),
			NewAmundi(log),
		},
		logger: log,
	}
}

// NewRegistryWith builds a registry from an explicit adapter list
func NewRegistryWith(log *logger.Logger, adapters ...contracts.ProviderAdapter) *Registry {
	return &Registry{adapters: adapters, logger: log}
}

var _ contracts.AdapterRegistry = (*Registry)(nil)

// GetAdapter returns the first adapter claiming the fund id
func (r *Registry) GetAdapter(fundID string) (contracts.ProviderAdapter, bool) {
	for _, a := range r.adapters {
		if a.Supports(fundID) {
			return a, true
		}
	}
	return nil, false
}

// Names lists the registered adapter names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}
