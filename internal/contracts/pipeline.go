package contracts

import "time"

// ProgressFunc receives phase progress events during a run.
// pct is in [0,100] within the named phase.
type ProgressFunc func(phase Phase, pct float64)

// PhaseMetrics holds counters and timing for one phase, used purely
// for the health report, never for control flow.
type PhaseMetrics struct {
	Duration time.Duration  `json:"duration_ms"`
	Counters map[string]int `json:"counters,omitempty"`
}

// QualitySummary is the health-report view of DataQuality
type QualitySummary struct {
	Score            float64               `json:"score"`
	IsTrustworthy    bool                  `json:"is_trustworthy"`
	IssuesBySeverity map[Severity]int      `json:"issue_counts_by_severity"`
	IssuesByCategory map[IssueCategory]int `json:"issue_counts_by_category"`
	Issues           []QualityIssue        `json:"issues"`
}

// HealthSummary is the machine-readable run health report
type HealthSummary struct {
	Timestamp       time.Time              `json:"timestamp"`
	Success         bool                   `json:"success"`
	PhaseMetrics    map[Phase]PhaseMetrics `json:"phase_metrics"`
	CacheHitRate    float64                `json:"cache_hit_rate"`
	APIFallbackRate float64                `json:"external_api_fallback_rate"`
	Quality         QualitySummary         `json:"data_quality"`
}

// PipelineResult is the outcome of one full pipeline run. A failed run
// still carries whatever partial outputs exist.
type PipelineResult struct {
	RunID      string    `json:"run_id"`
	Success    bool      `json:"success"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	TotalValue     float64                      `json:"total_portfolio_value"`
	Exposures      []ExposureRecord             `json:"exposures"`
	Breakdown      []BreakdownRow               `json:"breakdown"`
	Decompositions map[string]FundDecomposition `json:"-"`

	Quality *DataQuality    `json:"quality"`
	Errors  []PipelineError `json:"errors"`
	Health  *HealthSummary  `json:"health"`
}

// Duration returns the wall-clock run time
func (r *PipelineResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
