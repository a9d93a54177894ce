package handlers

import (
	"net/http"

	"ctiforge/internal/infrastructure/cache"
	"ctiforge/pkg/logger"
)

// StatsHandler serves the cached summary of the most recent pipeline run
type StatsHandler struct {
	cache  *cache.RedisCache
	logger *logger.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(c *cache.RedisCache, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		cache:  c,
		logger: log.WithComponent("stats"),
	}
}

// Get handles GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}

	summary, err := h.cache.LastRun(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read run summary")
		writeError(w, http.StatusInternalServerError, "failed to read run summary")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no pipeline run recorded")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
