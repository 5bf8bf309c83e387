package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// CacheHandler exposes the fund-holdings cache over HTTP
type CacheHandler struct {
	cache  contracts.HoldingsCache
	logger *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache contracts.HoldingsCache, log *logger.Logger) *CacheHandler {
	return &CacheHandler{
		cache:  cache,
		logger: log,
	}
}

// GetStats returns holdings cache statistics
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read cache stats")
		respondError(w, http.StatusInternalServerError, "failed to read cache stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Invalidate drops one fund's cached holdings
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	fundID := mux.Vars(r)["fundID"]
	if fundID == "" {
		respondError(w, http.StatusBadRequest, "fund id is required")
		return
	}

	if err := h.cache.Invalidate(r.Context(), fundID); err != nil {
		h.logger.WithError(err).WithField("fund_id", fundID).Error("Failed to invalidate cache entry")
		respondError(w, http.StatusInternalServerError, "failed to invalidate cache entry")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "invalidated",
		"fund_id": fundID,
	})
}
