package decompose

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/resolve"
	"github.com/wonny/xray/pkg/logger"
)

// identifierResolver is the slice of the resolver the decomposer needs
type identifierResolver interface {
	Resolve(ctx context.Context, req resolve.Request) contracts.ResolutionOutcome
}

// Options tunes decomposer behavior
type Options struct {
	// CacheMaxAge is the freshness window for the local holdings cache
	CacheMaxAge time.Duration
	// MaxConcurrentFunds bounds parallel fund decomposition
	MaxConcurrentFunds int
	// Contribute pushes adapter-fetched holdings to the community service
	Contribute bool
	// FetchTimeout bounds one provider adapter call
	FetchTimeout time.Duration
}

// Decomposer turns fund positions into resolved holdings tables by
// walking a four-tier chain per fund: local cache, community service,
// provider adapter registry, manual upload.
type Decomposer struct {
	cache     contracts.HoldingsCache
	community contracts.CommunityService
	adapters  contracts.AdapterRegistry
	manual    contracts.ManualUploadStore
	resolver  identifierResolver
	opts      Options
	logger    *logger.Logger

	mu       sync.Mutex
	bySource map[contracts.HoldingsSource]int
	misses   int
}

// New creates a Decomposer. Any tier collaborator may be nil; that
// tier then always misses.
func New(
	cache contracts.HoldingsCache,
	community contracts.CommunityService,
	adapters contracts.AdapterRegistry,
	manual contracts.ManualUploadStore,
	resolver identifierResolver,
	opts Options,
	log *logger.Logger,
) *Decomposer {
	if opts.MaxConcurrentFunds < 1 {
		opts.MaxConcurrentFunds = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &Decomposer{
		cache:     cache,
		community: community,
		adapters:  adapters,
		manual:    manual,
		resolver:  resolver,
		opts:      opts,
		logger:    log,
		bySource:  map[contracts.HoldingsSource]int{},
	}
}

// Decompose resolves the composition of every fund position. Funds are
// processed concurrently with a bounded group; a fund that fails at
// every tier is returned as a structured error, never an aborted run.
func (d *Decomposer) Decompose(ctx context.Context, funds []contracts.Position) (map[string]contracts.FundDecomposition, []contracts.PipelineError) {
	results := make(map[string]contracts.FundDecomposition, len(funds))
	var errs []contracts.PipelineError
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.MaxConcurrentFunds)

	for _, fund := range funds {
		fund := fund
		g.Go(func() error {
			decomp, perr := d.decomposeOne(gctx, fund)

			mu.Lock()
			defer mu.Unlock()
			if perr != nil {
				errs = append(errs, *perr)
				return nil
			}
			results[fund.ID] = *decomp
			return nil
		})
	}

	// Workers never return errors; failures are collected as data
	_ = g.Wait()

	return results, errs
}

func (d *Decomposer) decomposeOne(ctx context.Context, fund contracts.Position) (*contracts.FundDecomposition, *contracts.PipelineError) {
	table, err := d.GetHoldings(ctx, fund.ID)
	if err != nil {
		d.logger.WithError(err).WithField("fund", fund.ID).Warn("Fund has no holdings source")
		perr := contracts.NewPipelineError(
			contracts.PhaseDecompose,
			contracts.ErrNoDataSource,
			fund.ID,
			fmt.Sprintf("no holdings source for fund %s", fund.ID),
			"upload holdings manually",
		)
		return nil, &perr
	}

	rows := make([]contracts.HoldingRow, len(table.Rows))
	copy(rows, table.Rows)

	if normalizeWeights(rows) {
		d.logger.WithField("fund", fund.ID).Info("Holdings weights looked fractional, rescaled x100")
	}

	// Resolve largest positions first so the low-weight short-circuit
	// can only ever hit the long tail.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Weight > rows[j].Weight
	})

	decomp := &contracts.FundDecomposition{
		FundID:    fund.ID,
		FundName:  fund.Name,
		FundValue: fund.MarketValue(),
		Source:    table.Source,
	}

	for i := range rows {
		if rows[i].Ticker == "" {
			rows[i].Ticker = resolve.CleanTicker(rows[i].RawTicker)
		}

		rows[i].Resolution = d.resolver.Resolve(ctx, resolve.Request{
			Ticker:       rows[i].Ticker,
			Name:         rows[i].Name,
			ProviderID:   rows[i].ProviderID,
			Weight:       rows[i].Weight,
			ParentFundID: fund.ID,
		})

		switch rows[i].Resolution.Status {
		case contracts.StatusResolved:
			decomp.ResolvedCount++
		case contracts.StatusSkipped:
			decomp.SkippedCount++
		default:
			decomp.UnresolvedCount++
		}

		decomp.WeightSum += rows[i].Weight
	}

	decomp.Rows = rows

	d.logger.WithFields(map[string]interface{}{
		"fund":       fund.ID,
		"source":     string(table.Source),
		"holdings":   len(rows),
		"resolved":   decomp.ResolvedCount,
		"unresolved": decomp.UnresolvedCount,
		"skipped":    decomp.SkippedCount,
		"weight_sum": decomp.WeightSum,
	}).Info("Fund decomposed")

	return decomp, nil
}

// GetHoldings walks the holdings tier chain for one fund id
func (d *Decomposer) GetHoldings(ctx context.Context, fundID string) (*contracts.HoldingsTable, error) {
	if table := d.fromCache(ctx, fundID); table != nil {
		return table, nil
	}
	if table := d.fromCommunity(ctx, fundID); table != nil {
		return table, nil
	}
	if table := d.fromAdapter(ctx, fundID); table != nil {
		return table, nil
	}
	if table := d.fromManual(ctx, fundID); table != nil {
		return table, nil
	}

	d.mu.Lock()
	d.misses++
	d.mu.Unlock()

	return nil, fmt.Errorf("no holdings source for fund %s", fundID)
}

func (d *Decomposer) fromCache(ctx context.Context, fundID string) *contracts.HoldingsTable {
	if d.cache == nil {
		return nil
	}
	table, ok, err := d.cache.Get(ctx, fundID, d.opts.CacheMaxAge)
	if err != nil {
		d.logger.WithError(err).WithField("fund", fundID).Warn("Holdings cache lookup failed")
		return nil
	}
	if !ok || len(table.Rows) == 0 {
		return nil
	}
	d.count(contracts.HoldingsFromCache)
	return table
}

func (d *Decomposer) fromCommunity(ctx context.Context, fundID string) *contracts.HoldingsTable {
	if d.community == nil {
		return nil
	}
	table, ok, err := d.community.GetFundHoldings(ctx, fundID)
	if err != nil {
		d.logger.WithError(err).WithField("fund", fundID).Warn("Community holdings lookup failed")
		return nil
	}
	if !ok || len(table.Rows) == 0 {
		return nil
	}

	table.Source = contracts.HoldingsFromCommunity
	if table.FetchedAt.IsZero() {
		table.FetchedAt = time.Now()
	}
	d.writeThrough(ctx, table)
	d.count(contracts.HoldingsFromCommunity)
	return table
}

func (d *Decomposer) fromAdapter(ctx context.Context, fundID string) *contracts.HoldingsTable {
	if d.adapters == nil {
		return nil
	}
	adapter, ok := d.adapters.GetAdapter(fundID)
	if !ok {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	defer cancel()

	table, err := adapter.FetchHoldings(fetchCtx, fundID)
	if err != nil {
		// A timed-out or failed fetch is a tier miss
		d.logger.WithError(err).WithFields(map[string]interface{}{
			"fund":    fundID,
			"adapter": adapter.Name(),
		}).Warn("Provider adapter fetch failed")
		return nil
	}

	table.Source = contracts.HoldingsFromAdapter
	if table.FetchedAt.IsZero() {
		table.FetchedAt = time.Now()
	}
	d.writeThrough(ctx, table)

	if d.opts.Contribute && d.community != nil {
		// Fire-and-forget: contribution never delays decomposition
		go func(t contracts.HoldingsTable) {
			cctx, ccancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer ccancel()
			if err := d.community.ContributeHoldings(cctx, &t); err != nil {
				d.logger.WithError(err).WithField("fund", t.FundID).Warn("Holdings contribution failed")
			}
		}(*table)
	}

	d.count(contracts.HoldingsFromAdapter)
	return table
}

func (d *Decomposer) fromManual(ctx context.Context, fundID string) *contracts.HoldingsTable {
	if d.manual == nil {
		return nil
	}
	table, ok, err := d.manual.Get(ctx, fundID)
	if err != nil {
		d.logger.WithError(err).WithField("fund", fundID).Warn("Manual upload lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	table.Source = contracts.HoldingsFromManual
	d.count(contracts.HoldingsFromManual)
	return table
}

func (d *Decomposer) writeThrough(ctx context.Context, table *contracts.HoldingsTable) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Put(ctx, table); err != nil {
		d.logger.WithError(err).WithField("fund", table.FundID).Warn("Holdings cache write-through failed")
	}
}

func (d *Decomposer) count(source contracts.HoldingsSource) {
	d.mu.Lock()
	d.bySource[source]++
	d.mu.Unlock()
}

// Stats is a snapshot of holdings-lookup counters
type Stats struct {
	BySource map[contracts.HoldingsSource]int
	Misses   int
}

// Stats returns a copy of the decomposer's counters
func (d *Decomposer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{BySource: make(map[contracts.HoldingsSource]int, len(d.bySource)), Misses: d.misses}
	for k, v := range d.bySource {
		s.BySource[k] = v
	}
	return s
}

// CacheHitRate returns the fraction of holdings lookups served by the
// local cache, in [0,1].
func (s Stats) CacheHitRate() float64 {
	total := s.Misses
	for _, v := range s.BySource {
		total += v
	}
	if total == 0 {
		return 0
	}
	return float64(s.BySource[contracts.HoldingsFromCache]) / float64(total)
}
