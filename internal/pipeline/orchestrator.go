package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/xray/internal/aggregate"
	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/decompose"
	"github.com/wonny/xray/internal/enrich"
	"github.com/wonny/xray/internal/gates"
	"github.com/wonny/xray/internal/resolve"
	"github.com/wonny/xray/pkg/logger"
)

// Decomposer is the fund-decomposition dependency
type Decomposer interface {
	Decompose(ctx context.Context, funds []contracts.Position) (map[string]contracts.FundDecomposition, []contracts.PipelineError)
	Stats() decompose.Stats
}

// Enricher is the metadata-enrichment dependency
type Enricher interface {
	Enrich(ctx context.Context, ids []string) map[string]contracts.Metadata
	Stats() enrich.Stats
}

// Options configures one orchestrator
type Options struct {
	BaseCurrency string
	// Progress receives phase progress events; may be nil
	Progress contracts.ProgressFunc
	// ResolverStats supplies resolution counters for the health
	// report; may be nil
	ResolverStats func() resolve.Stats
}

// Orchestrator sequences the five pipeline phases. Failures inside one
// item become PipelineError entries and the run continues; only a
// phase-level catastrophe (no positions at all) fails the run, and
// even then the health and error reports are still written.
type Orchestrator struct {
	source     contracts.PositionSource
	decomposer Decomposer
	enricher   Enricher
	aggregator *aggregate.Aggregator
	writer     *ReportWriter
	opts       Options
	logger     *logger.Logger
}

func New(
	source contracts.PositionSource,
	decomposer Decomposer,
	enricher Enricher,
	aggregator *aggregate.Aggregator,
	writer *ReportWriter,
	opts Options,
	log *logger.Logger,
) *Orchestrator {
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "EUR"
	}
	return &Orchestrator{
		source:     source,
		decomposer: decomposer,
		enricher:   enricher,
		aggregator: aggregator,
		writer:     writer,
		opts:       opts,
		logger:     log,
	}
}

// Run executes one full pipeline pass for a portfolio
func (o *Orchestrator) Run(ctx context.Context, portfolioID string) (*contracts.PipelineResult, error) {
	result := &contracts.PipelineResult{
		RunID:     newRunID(),
		StartedAt: time.Now(),
	}
	acc := gates.NewAccumulator()
	monitor := NewMonitor()

	o.logger.WithFields(map[string]interface{}{
		"run_id":       result.RunID,
		"portfolio_id": portfolioID,
	}).Info("Pipeline run started")

	positions, ok := o.runLoad(ctx, portfolioID, result, acc, monitor)
	if !ok {
		return o.finish(result, acc, monitor, false), nil
	}

	decomps := o.runDecompose(ctx, positions, result, acc, monitor)
	metadata := o.runEnrich(ctx, positions, decomps, result, acc, monitor)
	o.runAggregate(positions, decomps, metadata, result, acc, monitor)

	return o.finish(result, acc, monitor, true), nil
}

func (o *Orchestrator) runLoad(
	ctx context.Context,
	portfolioID string,
	result *contracts.PipelineResult,
	acc *gates.Accumulator,
	monitor *Monitor,
) ([]contracts.Position, bool) {
	stop := monitor.BeginPhase(contracts.PhaseLoad)
	defer stop()
	o.progress(contracts.PhaseLoad, 0)

	positions, err := o.source.GetPositions(ctx, portfolioID)
	if err != nil {
		result.Errors = append(result.Errors, contracts.NewPipelineError(
			contracts.PhaseLoad, contracts.ErrAPIFailure, portfolioID,
			fmt.Sprintf("load positions: %v", err), "check the position source connection"))
		acc.Report(gates.CheckLoad(nil, o.opts.BaseCurrency))
		return nil, false
	}

	monitor.Count(contracts.PhaseLoad, "positions", len(positions))
	acc.Report(gates.CheckLoad(positions, o.opts.BaseCurrency))
	o.progress(contracts.PhaseLoad, 100)

	if len(positions) == 0 {
		result.Errors = append(result.Errors, contracts.NewPipelineError(
			contracts.PhaseLoad, contracts.ErrValidationFailed, portfolioID,
			"portfolio has no positions", "sync positions before running"))
		return nil, false
	}
	return positions, true
}

func (o *Orchestrator) runDecompose(
	ctx context.Context,
	positions []contracts.Position,
	result *contracts.PipelineResult,
	acc *gates.Accumulator,
	monitor *Monitor,
) map[string]contracts.FundDecomposition {
	stop := monitor.BeginPhase(contracts.PhaseDecompose)
	defer stop()
	o.progress(contracts.PhaseDecompose, 0)

	var funds []contracts.Position
	for _, p := range positions {
		if p.IsFund() {
			funds = append(funds, p)
		}
	}
	monitor.Count(contracts.PhaseDecompose, "funds", len(funds))
	if len(funds) == 0 || o.decomposer == nil {
		o.progress(contracts.PhaseDecompose, 100)
		return nil
	}

	decomps, errs := o.decomposer.Decompose(ctx, funds)
	result.Errors = append(result.Errors, errs...)
	result.Decompositions = decomps

	for _, d := range decomps {
		acc.Report(gates.CheckDecompose(d))
	}
	monitor.Count(contracts.PhaseDecompose, "decomposed", len(decomps))
	monitor.Count(contracts.PhaseDecompose, "failed", len(funds)-len(decomps))
	o.progress(contracts.PhaseDecompose, 100)
	return decomps
}

func (o *Orchestrator) runEnrich(
	ctx context.Context,
	positions []contracts.Position,
	decomps map[string]contracts.FundDecomposition,
	result *contracts.PipelineResult,
	acc *gates.Accumulator,
	monitor *Monitor,
) map[string]contracts.Metadata {
	stop := monitor.BeginPhase(contracts.PhaseEnrich)
	defer stop()
	o.progress(contracts.PhaseEnrich, 0)

	ids := collectIDs(positions, decomps)
	monitor.Count(contracts.PhaseEnrich, "securities", len(ids))
	if o.enricher == nil || len(ids) == 0 {
		o.progress(contracts.PhaseEnrich, 100)
		return nil
	}

	metadata := o.enricher.Enrich(ctx, ids)

	total, withSector, withGeography := enrich.Coverage(ids, metadata)
	acc.Report(gates.CheckEnrich(total, withSector, withGeography))
	monitor.Count(contracts.PhaseEnrich, "enriched", len(metadata))
	o.progress(contracts.PhaseEnrich, 100)
	return metadata
}

func (o *Orchestrator) runAggregate(
	positions []contracts.Position,
	decomps map[string]contracts.FundDecomposition,
	metadata map[string]contracts.Metadata,
	result *contracts.PipelineResult,
	acc *gates.Accumulator,
	monitor *Monitor,
) {
	stop := monitor.BeginPhase(contracts.PhaseAggregate)
	defer stop()
	o.progress(contracts.PhaseAggregate, 0)

	records, total := o.aggregator.Aggregate(positions, decomps, metadata)
	result.Exposures = records
	result.TotalValue = total
	result.Breakdown = aggregate.BuildBreakdown(positions, decomps, metadata)

	acc.Report(gates.CheckAggregate(records, total))
	monitor.Count(contracts.PhaseAggregate, "records", len(records))
	o.progress(contracts.PhaseAggregate, 100)
}

// finish freezes quality and health, then writes the report files.
// Runs for failed pipelines too so partial outputs are never lost.
func (o *Orchestrator) finish(
	result *contracts.PipelineResult,
	acc *gates.Accumulator,
	monitor *Monitor,
	success bool,
) *contracts.PipelineResult {
	result.Success = success
	result.FinishedAt = time.Now()

	if o.decomposer != nil {
		cacheHit := o.decomposer.Stats().CacheHitRate()
		apiFallback := 0.0
		if o.opts.ResolverStats != nil {
			rs := o.opts.ResolverStats()
			if total := rs.Total(); total > 0 {
				apiFallback = float64(rs.APICalls) / float64(total)
			}
		}
		monitor.SetRates(cacheHit, apiFallback)
	}

	quality := acc.Snapshot()
	result.Quality = &quality
	result.Health = monitor.BuildHealth(success, &quality)

	if o.writer != nil {
		stop := monitor.BeginPhase(contracts.PhaseReport)
		o.progress(contracts.PhaseReport, 0)
		result.Errors = append(result.Errors, o.writer.WriteAll(result)...)
		stop()
		o.progress(contracts.PhaseReport, 100)
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"success":  result.Success,
		"duration": result.Duration(),
		"score":    quality.Score,
		"errors":   len(result.Errors),
	}).Info("Pipeline run finished")
	return result
}

func (o *Orchestrator) progress(phase contracts.Phase, pct float64) {
	if o.opts.Progress != nil {
		o.opts.Progress(phase, pct)
	}
}

// collectIDs gathers every canonical id the run touched: direct
// position ids and resolved holding rows. Placeholders are filtered by
// the enricher.
func collectIDs(positions []contracts.Position, decomps map[string]contracts.FundDecomposition) []string {
	var ids []string
	for _, p := range positions {
		if !p.IsFund() && p.ID != "" {
			ids = append(ids, p.ID)
		}
	}
	for _, d := range decomps {
		for _, row := range d.Rows {
			if row.Resolution.IsResolved() {
				ids = append(ids, row.Resolution.CanonicalID)
			}
		}
	}
	return ids
}

func newRunID() string {
	return "run-" + time.Now().Format("20060102-150405")
}
