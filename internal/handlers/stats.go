package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"mindping-core/internal/services"
)

// StatsHandler handles statistics HTTP requests
type StatsHandler struct {
	statsService *services.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// TodayStats handles GET /api/v1/friends/{friend_id}/stats/today
func (h *StatsHandler) TodayStats(w http.ResponseWriter, r *http.Request) {
	friendID := chi.URLParam(r, "friend_id")
	if friendID == "" {
		respondError(w, "friend_id is required", http.StatusBadRequest)
		return
	}

	stats, err := h.statsService.Today(friendID)
	if err != nil {
		log.Error().Err(err).Str("friend_id", friendID).Msg("Failed to compute today stats")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// WeekStats handles GET /api/v1/friends/{friend_id}/stats/week
func (h *StatsHandler) WeekStats(w http.ResponseWriter, r *http.Request) {
	friendID := chi.URLParam(r, "friend_id")
	if friendID == "" {
		respondError(w, "friend_id is required", http.StatusBadRequest)
		return
	}
	lang := r.URL.Query().Get("lang")

	stats, err := h.statsService.Week(friendID, lang)
	if err != nil {
		log.Error().Err(err).Str("friend_id", friendID).Msg("Failed to compute week stats")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// TotalsResponse carries the all-time counters
type TotalsResponse struct {
	Sent     int `json:"sent"`
	Received int `json:"received"`
}

// Totals handles GET /api/v1/stats/totals
func (h *StatsHandler) Totals(w http.ResponseWriter, r *http.Request) {
	sent, received, err := h.statsService.Totals()
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute totals")
		respondError(w, "Failed to compute totals", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, TotalsResponse{Sent: sent, Received: received})
}
