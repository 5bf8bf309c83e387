package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/xray/internal/pipeline"
	"github.com/wonny/xray/pkg/logger"
)

// DefaultPortfolioID is the portfolio the nightly run processes
const DefaultPortfolioID = "main"

// PipelineRunJob executes the full exposure pipeline nightly
type PipelineRunJob struct {
	orchestrator *pipeline.Orchestrator
	portfolioID  string
	logger       *logger.Logger
}

func NewPipelineRunJob(orchestrator *pipeline.Orchestrator, portfolioID string, log *logger.Logger) *PipelineRunJob {
	if portfolioID == "" {
		portfolioID = DefaultPortfolioID
	}
	return &PipelineRunJob{
		orchestrator: orchestrator,
		portfolioID:  portfolioID,
		logger:       log,
	}
}

func (j *PipelineRunJob) Name() string {
	return "pipeline_run"
}

// Schedule runs at 03:00 nightly, after the holdings refresh
func (j *PipelineRunJob) Schedule() string {
	return "0 0 3 * * *"
}

func (j *PipelineRunJob) Run(ctx context.Context) error {
	result, err := j.orchestrator.Run(ctx, j.portfolioID)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("pipeline run %s failed with %d errors", result.RunID, len(result.Errors))
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  result.RunID,
		"records": len(result.Exposures),
		"score":   result.Quality.Score,
	}).Info("Scheduled pipeline run finished")
	return nil
}
