package handlers

import (
	"net/http"

	"ctiforge/internal/infrastructure/cache"
	"ctiforge/internal/infrastructure/database/repository"
	"ctiforge/pkg/logger"
)

// HealthHandler handles health and readiness endpoints
type HealthHandler struct {
	repos  *repository.Repositories
	cache  *cache.RedisCache
	logger *logger.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(repos *repository.Repositories, c *cache.RedisCache, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		repos:  repos,
		cache:  c,
		logger: log.WithComponent("health"),
	}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"database": "disabled", "cache": "disabled"}
	ready := true

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status["cache"] = "unavailable"
			ready = false
		} else {
			status["cache"] = "ok"
		}
	}

	if h.repos == nil {
		// The API is read-only over stored results; without a database
		// there is nothing to serve.
		status["database"] = "unavailable"
		ready = false
	} else {
		status["database"] = "ok"
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
