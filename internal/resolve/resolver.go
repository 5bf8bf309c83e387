package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/httputil"
	"github.com/wonny/xray/pkg/logger"
	"github.com/wonny/xray/pkg/redis"
)

// Request is one identifier to resolve, taken from a fund holding row
type Request struct {
	Ticker       string
	Name         string
	ProviderID   string
	Weight       float64 // percent of parent fund
	ParentFundID string
}

// Options tunes resolver behavior
type Options struct {
	// LowWeightThreshold (percent): rows at or below it never reach
	// the external API tiers.
	LowWeightThreshold float64
	// Contribute controls community write-back of resolved ids
	Contribute bool
}

// tier is one strategy in the fallback chain. Tier order is a data
// structure, not control flow; the first hit wins.
type tier struct {
	source   contracts.ResolutionSource
	external bool
	lookup   func(ctx context.Context, req Request) (string, bool, error)
}

// Resolver resolves noisy ticker/name pairs to canonical security ids
// through a fixed chain of fallback tiers. It never returns an error:
// a tier failure is a miss for that tier only.
type Resolver struct {
	tiers     []tier
	negative  contracts.NegativeCache
	writeback *Writeback
	opts      Options
	logger    *logger.Logger

	mu       sync.Mutex
	byStatus map[contracts.ResolutionStatus]int
	bySource map[contracts.ResolutionSource]int
	apiCalls int
}

// New wires the resolver's tier chain. Any collaborator may be nil;
// its tier then always misses.
func New(
	manual *ManualTable,
	cache contracts.IdentifierCache,
	community contracts.CommunityService,
	apis []contracts.ResolutionAPI,
	negative contracts.NegativeCache,
	writeback *Writeback,
	opts Options,
	log *logger.Logger,
) *Resolver {
	r := &Resolver{
		negative:  negative,
		writeback: writeback,
		opts:      opts,
		logger:    log,
		byStatus:  map[contracts.ResolutionStatus]int{},
		bySource:  map[contracts.ResolutionSource]int{},
	}

	r.tiers = []tier{
		{source: contracts.SourceProvider, lookup: r.lookupProvider},
		{source: contracts.SourceManual, lookup: func(ctx context.Context, req Request) (string, bool, error) {
			if manual == nil {
				return "", false, nil
			}
			id, ok := manual.Lookup(req.Ticker)
			return id, ok, nil
		}},
		{source: contracts.SourceCache, lookup: func(ctx context.Context, req Request) (string, bool, error) {
			return lookupLocalCache(ctx, cache, req)
		}},
		{source: contracts.SourceCommunity, lookup: func(ctx context.Context, req Request) (string, bool, error) {
			return lookupCommunity(ctx, community, req)
		}},
	}

	for _, api := range apis {
		api := api
		r.tiers = append(r.tiers, tier{
			source:   api.Source(),
			external: true,
			lookup: func(ctx context.Context, req Request) (string, bool, error) {
				return api.Lookup(ctx, req.Ticker, req.Name)
			},
		})
	}

	return r
}

// Resolve runs the tier chain for one request. Rows at or below the
// low-weight threshold skip the external tiers and end skipped when
// the local tiers miss.
func (r *Resolver) Resolve(ctx context.Context, req Request) contracts.ResolutionOutcome {
	lowWeight := req.Weight <= r.opts.LowWeightThreshold
	negKey := r.negativeKey(req)
	negative := r.negative != nil && negKey != "" && r.negative.IsNegative(ctx, negKey)

	for _, t := range r.tiers {
		if t.external {
			if lowWeight || negative {
				continue
			}
			r.countAPICall()
		}

		id, ok, err := t.lookup(ctx, req)
		if err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"tier":   string(t.source),
				"ticker": req.Ticker,
				"fund":   req.ParentFundID,
			}).Warn("Resolution tier failed, treating as miss")

			if t.external && httputil.IsRateLimited(err) && r.negative != nil && negKey != "" {
				r.negative.MarkNegative(ctx, negKey, redis.TTLRateLimited)
				negative = true
			}
			continue
		}
		if !ok || !ValidCanonicalID(id) {
			if ok {
				r.logger.WithFields(map[string]interface{}{
					"tier":   string(t.source),
					"ticker": req.Ticker,
					"id":     id,
				}).Warn("Tier returned malformed canonical id, treating as miss")
			}
			continue
		}

		outcome := contracts.ResolutionOutcome{
			Status:      contracts.StatusResolved,
			Source:      t.source,
			CanonicalID: id,
			Confidence:  contracts.SourceConfidence(t.source),
			Detail:      fmt.Sprintf("resolved via %s", t.source),
		}

		// Community and external hits write through to the local cache
		// so the cache tier answers on the next run. Only external hits
		// are contributed back; the community already knows its own.
		if r.writeback != nil && (t.external || t.source == contracts.SourceCommunity) {
			r.writeback.Enqueue(writebackItem{
				Ticker:      CleanTicker(req.Ticker),
				Name:        req.Name,
				CanonicalID: id,
				Source:      t.source,
				Contribute:  r.opts.Contribute && t.external,
			})
		}

		r.record(outcome)
		return outcome
	}

	if lowWeight {
		outcome := contracts.ResolutionOutcome{
			Status:     contracts.StatusSkipped,
			Confidence: 0,
			Detail:     fmt.Sprintf("weight %.3f%% at or below threshold, external lookups skipped", req.Weight),
		}
		r.record(outcome)
		return outcome
	}

	if r.negative != nil && negKey != "" && !negative {
		r.negative.MarkNegative(ctx, negKey, redis.TTLUnresolved)
	}

	outcome := contracts.ResolutionOutcome{
		Status:     contracts.StatusUnresolved,
		Confidence: 0,
		Detail:     "all resolution tiers missed",
	}
	r.record(outcome)
	return outcome
}

func (r *Resolver) lookupProvider(ctx context.Context, req Request) (string, bool, error) {
	if req.ProviderID == "" {
		return "", false, nil
	}
	if !ValidCanonicalID(req.ProviderID) {
		return "", false, nil
	}
	return req.ProviderID, true, nil
}

func lookupLocalCache(ctx context.Context, cache contracts.IdentifierCache, req Request) (string, bool, error) {
	if cache == nil {
		return "", false, nil
	}

	for _, ticker := range TickerVariants(req.Ticker) {
		id, ok, err := cache.GetByTicker(ctx, ticker)
		if err != nil {
			return "", false, err
		}
		if ok {
			return id, true, nil
		}
	}

	for _, name := range NameVariants(req.Name) {
		id, ok, err := cache.GetByName(ctx, name)
		if err != nil {
			return "", false, err
		}
		if ok {
			return id, true, nil
		}
	}

	return "", false, nil
}

func lookupCommunity(ctx context.Context, community contracts.CommunityService, req Request) (string, bool, error) {
	if community == nil {
		return "", false, nil
	}

	for _, ticker := range TickerVariants(req.Ticker) {
		id, ok, err := community.LookupTicker(ctx, ticker)
		if err != nil {
			return "", false, err
		}
		if ok {
			return id, true, nil
		}
	}

	for _, name := range NameVariants(req.Name) {
		id, ok, err := community.LookupName(ctx, name)
		if err != nil {
			return "", false, err
		}
		if ok {
			return id, true, nil
		}
	}

	return "", false, nil
}

func (r *Resolver) negativeKey(req Request) string {
	if t := CleanTicker(req.Ticker); t != "" {
		return t
	}
	variants := NameVariants(req.Name)
	if len(variants) > 0 {
		return variants[0]
	}
	return ""
}

func (r *Resolver) record(outcome contracts.ResolutionOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byStatus[outcome.Status]++
	if outcome.Source != "" {
		r.bySource[outcome.Source]++
	}
}

func (r *Resolver) countAPICall() {
	r.mu.Lock()
	r.apiCalls++
	r.mu.Unlock()
}

// Stats is a snapshot of resolution counters for the health report
type Stats struct {
	ByStatus map[contracts.ResolutionStatus]int
	BySource map[contracts.ResolutionSource]int
	APICalls int
}

// Stats returns a copy of the resolver's counters
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		ByStatus: make(map[contracts.ResolutionStatus]int, len(r.byStatus)),
		BySource: make(map[contracts.ResolutionSource]int, len(r.bySource)),
		APICalls: r.apiCalls,
	}
	for k, v := range r.byStatus {
		s.ByStatus[k] = v
	}
	for k, v := range r.bySource {
		s.BySource[k] = v
	}
	return s
}

// Total returns the number of resolution attempts recorded
func (s Stats) Total() int {
	total := 0
	for _, v := range s.ByStatus {
		total += v
	}
	return total
}
