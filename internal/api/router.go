package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/xray/internal/api/handlers"
	"github.com/wonny/xray/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	pipelineHandler *handlers.PipelineHandler,
	cacheHandler *handlers.CacheHandler,
	jobsHandler *handlers.JobsHandler,
	hub *ProgressHub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Pipeline endpoints
	api.HandleFunc("/pipeline/run", pipelineHandler.TriggerRun).Methods("POST")
	api.HandleFunc("/pipeline/latest", pipelineHandler.GetLatest).Methods("GET")
	api.HandleFunc("/pipeline/exposures", pipelineHandler.GetExposures).Methods("GET")
	api.HandleFunc("/pipeline/breakdown", pipelineHandler.GetBreakdown).Methods("GET")
	api.HandleFunc("/pipeline/quality", pipelineHandler.GetQuality).Methods("GET")

	// Holdings cache endpoints
	api.HandleFunc("/cache/stats", cacheHandler.GetStats).Methods("GET")
	api.HandleFunc("/cache/funds/{fundID}", cacheHandler.Invalidate).Methods("DELETE")

	// Scheduler endpoints
	api.HandleFunc("/jobs", jobsHandler.List).Methods("GET")
	api.HandleFunc("/jobs/{name}/run", jobsHandler.Trigger).Methods("POST")

	// Run progress over websocket
	if hub != nil {
		r.HandleFunc("/ws/progress", hub.Handle)
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "xray-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
