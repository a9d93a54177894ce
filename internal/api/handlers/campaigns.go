package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ctiforge/internal/infrastructure/database/repository"
	"ctiforge/pkg/logger"
)

// CampaignsHandler handles campaign endpoints
type CampaignsHandler struct {
	repos  *repository.Repositories
	logger *logger.Logger
}

// NewCampaignsHandler creates a new CampaignsHandler
func NewCampaignsHandler(repos *repository.Repositories, log *logger.Logger) *CampaignsHandler {
	return &CampaignsHandler{
		repos:  repos,
		logger: log.WithComponent("campaigns"),
	}
}

// List handles GET /api/v1/campaigns
func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repos == nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	limit, offset := pagination(r, 100)
	campaigns, total, err := h.repos.Campaigns.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list campaigns")
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  campaigns,
		"total": total,
	})
}

// Get handles GET /api/v1/campaigns/{id}
func (h *CampaignsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.repos == nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	campaignID := chi.URLParam(r, "id")
	campaign, err := h.repos.Campaigns.GetByID(r.Context(), campaignID)
	if err != nil {
		h.logger.Error().Err(err).Str("campaign_id", campaignID).Msg("failed to get campaign")
		writeError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}

	writeJSON(w, http.StatusOK, campaign)
}

// ListEvents handles GET /api/v1/campaigns/{id}/events
func (h *CampaignsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.repos == nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	campaignID := chi.URLParam(r, "id")
	results, err := h.repos.Correlations.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		h.logger.Error().Err(err).Str("campaign_id", campaignID).Msg("failed to list campaign events")
		writeError(w, http.StatusInternalServerError, "failed to list campaign events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  results,
		"total": len(results),
	})
}

// pagination parses limit/offset query params with a default limit
func pagination(r *http.Request, defaultLimit int) (int, int) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
