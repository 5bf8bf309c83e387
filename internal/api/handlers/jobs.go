package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/xray/internal/scheduler"
	"github.com/wonny/xray/pkg/logger"
)

// JobsHandler exposes scheduled-job state over HTTP
type JobsHandler struct {
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(sched *scheduler.Scheduler, log *logger.Logger) *JobsHandler {
	return &JobsHandler{
		scheduler: sched,
		logger:    log,
	}
}

// List returns statistics for every registered job
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  h.scheduler.GetAllJobs(),
		"stats": h.scheduler.GetJobStats(),
	})
}

// Trigger starts one job immediately
func (h *JobsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.scheduler.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"job":    name,
	})
}
