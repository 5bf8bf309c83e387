package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// Runner triggers a full pipeline run
type Runner interface {
	Run(ctx context.Context, portfolioID string) (*contracts.PipelineResult, error)
}

// PipelineHandler exposes pipeline runs and their results over HTTP.
// Runs execute asynchronously; the handler keeps the most recent
// result in memory for the read endpoints.
type PipelineHandler struct {
	runner Runner
	logger *logger.Logger

	mu      sync.Mutex
	running bool
	latest  *contracts.PipelineResult
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(runner Runner, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		runner: runner,
		logger: log,
	}
}

// RunRequest is the optional body of POST /api/pipeline/run
type RunRequest struct {
	PortfolioID string `json:"portfolio_id"`
}

// TriggerRun starts a pipeline run in the background.
// Only one run may be in flight at a time.
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.Body != nil {
		// An empty body means the default portfolio.
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.PortfolioID == "" {
		req.PortfolioID = "main"
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "a pipeline run is already in progress")
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.runAsync(req.PortfolioID)

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":       "started",
		"portfolio_id": req.PortfolioID,
	})
}

func (h *PipelineHandler) runAsync(portfolioID string) {
	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	result, err := h.runner.Run(context.Background(), portfolioID)
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", portfolioID).Error("Pipeline run failed")
	}
	if result != nil {
		h.mu.Lock()
		h.latest = result
		h.mu.Unlock()
	}
}

// GetLatest returns the most recent run result
func (h *PipelineHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	result := h.latestResult()
	if result == nil {
		respondError(w, http.StatusNotFound, "no pipeline run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetExposures returns the exposure table of the most recent run
func (h *PipelineHandler) GetExposures(w http.ResponseWriter, r *http.Request) {
	result := h.latestResult()
	if result == nil {
		respondError(w, http.StatusNotFound, "no pipeline run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":                result.RunID,
		"total_portfolio_value": result.TotalValue,
		"exposures":             result.Exposures,
	})
}

// GetBreakdown returns the per-fund breakdown of the most recent run
func (h *PipelineHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	result := h.latestResult()
	if result == nil {
		respondError(w, http.StatusNotFound, "no pipeline run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    result.RunID,
		"breakdown": result.Breakdown,
	})
}

// GetQuality returns the health summary of the most recent run
func (h *PipelineHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	result := h.latestResult()
	if result == nil || result.Health == nil {
		respondError(w, http.StatusNotFound, "no pipeline run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, result.Health)
}

func (h *PipelineHandler) latestResult() *contracts.PipelineResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
