package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/decompose"
	"github.com/wonny/xray/pkg/config"
	"github.com/wonny/xray/pkg/logger"
)

// HoldingsRefreshJob re-fetches fund compositions whose cached table
// has grown stale, so the nightly pipeline run starts from warm data
// instead of hammering providers mid-run.
type HoldingsRefreshJob struct {
	cache      contracts.HoldingsCache
	decomposer *decompose.Decomposer
	maxAge     time.Duration
	logger     *logger.Logger
}

func NewHoldingsRefreshJob(cache contracts.HoldingsCache, decomposer *decompose.Decomposer, cfg *config.Config, log *logger.Logger) *HoldingsRefreshJob {
	return &HoldingsRefreshJob{
		cache:      cache,
		decomposer: decomposer,
		maxAge:     cfg.Pipeline.HoldingsCacheMaxAge,
		logger:     log,
	}
}

func (j *HoldingsRefreshJob) Name() string {
	return "holdings_refresh"
}

// Schedule runs at 02:30 nightly, before the pipeline job
func (j *HoldingsRefreshJob) Schedule() string {
	return "0 30 2 * * *"
}

func (j *HoldingsRefreshJob) Run(ctx context.Context) error {
	stale, err := j.cache.StaleFunds(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("list stale funds: %w", err)
	}
	if len(stale) == 0 {
		j.logger.Info("No stale fund holdings")
		return nil
	}

	refreshed := 0
	for _, fundID := range stale {
		if err := j.cache.Invalidate(ctx, fundID); err != nil {
			j.logger.WithError(err).WithField("fund_id", fundID).Warn("Invalidate failed")
			continue
		}
		// GetHoldings walks the tier chain and writes through to the
		// cache; a miss just leaves the fund for the manual slot.
		if _, err := j.decomposer.GetHoldings(ctx, fundID); err != nil {
			j.logger.WithError(err).WithField("fund_id", fundID).Warn("Holdings refresh failed")
			continue
		}
		refreshed++
	}

	j.logger.WithFields(map[string]interface{}{
		"stale":     len(stale),
		"refreshed": refreshed,
	}).Info("Holdings refresh finished")
	return nil
}
