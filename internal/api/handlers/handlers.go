package handlers

import (
	"encoding/json"
	"net/http"

	"ctiforge/internal/infrastructure/cache"
	"ctiforge/internal/infrastructure/database/repository"
	"ctiforge/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health    *HealthHandler
	Campaigns *CampaignsHandler
	Scores    *ScoresHandler
	Stats     *StatsHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Repos  *repository.Repositories
	Cache  *cache.RedisCache
	Logger *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Repos, deps.Cache, deps.Logger),
		Campaigns: NewCampaignsHandler(deps.Repos, deps.Logger),
		Scores:    NewScoresHandler(deps.Repos, deps.Logger),
		Stats:     NewStatsHandler(deps.Cache, deps.Logger),
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
