package enrich

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// Enricher attaches sector/geography metadata to resolved canonical
// ids. It runs the same cascading-fallback shape as identifier
// resolution: local cache, then one community batch call, then the
// ranked metadata APIs one id at a time.
type Enricher struct {
	cache     contracts.IdentifierCache
	community contracts.CommunityService
	apis      []contracts.MetadataAPI
	logger    *logger.Logger

	mu    sync.Mutex
	stats Stats
}

// Stats counts where metadata came from during one run
type Stats struct {
	CacheHits     int `json:"cache_hits"`
	CommunityHits int `json:"community_hits"`
	APIHits       int `json:"api_hits"`
	APICalls      int `json:"api_calls"`
	Missing       int `json:"missing"`
}

func New(cache contracts.IdentifierCache, community contracts.CommunityService, apis []contracts.MetadataAPI, log *logger.Logger) *Enricher {
	return &Enricher{
		cache:     cache,
		community: community,
		apis:      apis,
		logger:    log,
	}
}

// Enrich returns metadata for every id it could find anything for.
// Placeholder ids for unresolved holdings are skipped up front since
// no metadata source can know them.
func (e *Enricher) Enrich(ctx context.Context, ids []string) map[string]contracts.Metadata {
	result := make(map[string]contracts.Metadata)

	pending := e.fromCache(ctx, dedupe(ids), result)
	pending = e.fromCommunity(ctx, pending, result)
	pending = e.fromAPIs(ctx, pending, result)

	e.mu.Lock()
	e.stats.Missing += len(pending)
	e.mu.Unlock()

	e.logger.WithFields(map[string]interface{}{
		"requested": len(ids),
		"enriched":  len(result),
		"missing":   len(pending),
	}).Info("Metadata enrichment finished")

	return result
}

func (e *Enricher) fromCache(ctx context.Context, ids []string, result map[string]contracts.Metadata) []string {
	if e.cache == nil {
		return ids
	}
	var pending []string
	for _, id := range ids {
		meta, ok, err := e.cache.GetMetadata(ctx, id)
		if err != nil {
			e.logger.WithError(err).WithField("canonical_id", id).Warn("Metadata cache lookup failed")
		}
		if ok && meta != nil && !meta.IsEmpty() {
			result[id] = *meta
			e.mu.Lock()
			e.stats.CacheHits++
			e.mu.Unlock()
			continue
		}
		pending = append(pending, id)
	}
	return pending
}

func (e *Enricher) fromCommunity(ctx context.Context, ids []string, result map[string]contracts.Metadata) []string {
	if e.community == nil || len(ids) == 0 {
		return ids
	}
	batch, err := e.community.GetMetadataBatch(ctx, ids)
	if err != nil {
		e.logger.WithError(err).Warn("Community metadata batch failed")
		return ids
	}

	var pending []string
	for _, id := range ids {
		meta, ok := batch[id]
		if !ok || meta.IsEmpty() {
			pending = append(pending, id)
			continue
		}
		result[id] = meta
		e.writeBack(ctx, id, meta)
		e.mu.Lock()
		e.stats.CommunityHits++
		e.mu.Unlock()
	}
	return pending
}

func (e *Enricher) fromAPIs(ctx context.Context, ids []string, result map[string]contracts.Metadata) []string {
	if len(e.apis) == 0 {
		return ids
	}
	var pending []string
	for _, id := range ids {
		meta := e.lookupAPIs(ctx, id)
		if meta == nil {
			pending = append(pending, id)
			continue
		}
		result[id] = *meta
		e.writeBack(ctx, id, *meta)
		e.mu.Lock()
		e.stats.APIHits++
		e.mu.Unlock()
	}
	return pending
}

func (e *Enricher) lookupAPIs(ctx context.Context, id string) *contracts.Metadata {
	for _, api := range e.apis {
		e.mu.Lock()
		e.stats.APICalls++
		e.mu.Unlock()

		meta, ok, err := api.Lookup(ctx, id)
		if err != nil {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"api":          api.Name(),
				"canonical_id": id,
			}).Warn("Metadata API lookup failed")
			continue
		}
		if ok && meta != nil && !meta.IsEmpty() {
			return meta
		}
	}
	return nil
}

func (e *Enricher) writeBack(ctx context.Context, id string, meta contracts.Metadata) {
	if e.cache == nil {
		return
	}
	if err := e.cache.PutMetadata(ctx, id, meta); err != nil {
		e.logger.WithError(err).WithField("canonical_id", id).Warn("Metadata cache write failed")
	}
}

// Coverage counts how many of the given ids have sector and geography
// in the enrichment result. Consumed by the enrich gate.
func Coverage(ids []string, metadata map[string]contracts.Metadata) (total, withSector, withGeography int) {
	for _, id := range dedupe(ids) {
		total++
		if meta, ok := metadata[id]; ok {
			if meta.Sector != "" {
				withSector++
			}
			if meta.Geography != "" {
				withGeography++
			}
		}
	}
	return total, withSector, withGeography
}

// Stats returns a copy of the run counters
func (e *Enricher) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// dedupe drops duplicates and placeholder ids, preserving a stable
// sorted order so runs are reproducible.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if len(id) >= len(contracts.UnresolvedIDPrefix) &&
			id[:len(contracts.UnresolvedIDPrefix)] == contracts.UnresolvedIDPrefix {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
