package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"mindping-core/internal/services"
)

// PingHandler handles ping-related HTTP requests
type PingHandler struct {
	synchronizer *services.Synchronizer
}

// NewPingHandler creates a new ping handler
func NewPingHandler(synchronizer *services.Synchronizer) *PingHandler {
	return &PingHandler{synchronizer: synchronizer}
}

// SendPingRequest represents the request body for sending a ping
type SendPingRequest struct {
	ReceiverID string `json:"receiver_id"`
}

// SendPingResponse carries the id the local mirror uses for the new ping
type SendPingResponse struct {
	PingID string `json:"ping_id"`
}

// SendPing handles POST /api/v1/pings
func (h *PingHandler) SendPing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SendPingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ReceiverID == "" {
		respondError(w, "receiver_id is required", http.StatusBadRequest)
		return
	}

	pingID, err := h.synchronizer.SendPing(ctx, req.ReceiverID)
	if err != nil {
		log.Error().Err(err).Str("receiver_id", req.ReceiverID).Msg("Failed to send ping")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, SendPingResponse{PingID: pingID})
}

// ListUnread handles GET /api/v1/pings/unread
func (h *PingHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.synchronizer.Unread())
}

// MarkRead handles POST /api/v1/pings/{ping_id}/read
func (h *PingHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pingID := chi.URLParam(r, "ping_id")
	if pingID == "" {
		respondError(w, "ping_id is required", http.StatusBadRequest)
		return
	}

	if err := h.synchronizer.MarkRead(ctx, pingID); err != nil {
		log.Error().Err(err).Str("ping_id", pingID).Msg("Failed to mark ping read")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
