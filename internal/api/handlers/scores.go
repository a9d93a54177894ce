package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ctiforge/internal/infrastructure/database/repository"
	"ctiforge/pkg/logger"
)

// ScoresHandler handles severity score endpoints
type ScoresHandler struct {
	repos  *repository.Repositories
	logger *logger.Logger
}

// NewScoresHandler creates a new ScoresHandler
func NewScoresHandler(repos *repository.Repositories, log *logger.Logger) *ScoresHandler {
	return &ScoresHandler{
		repos:  repos,
		logger: log.WithComponent("scores"),
	}
}

// List handles GET /api/v1/scores?label=high&min_severity=0.5
func (h *ScoresHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repos == nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	label := r.URL.Query().Get("label")
	minSeverity := 0.0
	if raw := r.URL.Query().Get("min_severity"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "min_severity must be a number in [0,1]")
			return
		}
		minSeverity = parsed
	}

	limit, offset := pagination(r, 100)
	scores, total, err := h.repos.Scores.List(r.Context(), label, minSeverity, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list scores")
		writeError(w, http.StatusInternalServerError, "failed to list scores")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  scores,
		"total": total,
	})
}

// Get handles GET /api/v1/scores/{event_id}
func (h *ScoresHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.repos == nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	eventID := chi.URLParam(r, "event_id")
	score, err := h.repos.Scores.GetByEventID(r.Context(), eventID)
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to get score")
		writeError(w, http.StatusInternalServerError, "failed to get score")
		return
	}
	if score == nil {
		writeError(w, http.StatusNotFound, "score not found")
		return
	}

	writeJSON(w, http.StatusOK, score)
}
