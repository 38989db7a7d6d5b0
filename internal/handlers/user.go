package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"mindping-core/internal/models"
	"mindping-core/internal/services"
	"mindping-core/internal/session"
)

// UserHandler handles profile HTTP requests
type UserHandler struct {
	accountService *services.AccountService
	session        *session.Session
}

// NewUserHandler creates a new user handler
func NewUserHandler(accountService *services.AccountService, sess *session.Session) *UserHandler {
	return &UserHandler{accountService: accountService, session: sess}
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.session.User()
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// SetupRequest represents the request body for profile setup
type SetupRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarStyle string `json:"avatar_style"`
}

// Setup handles POST /api/v1/me
func (h *UserHandler) Setup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.accountService.Setup(ctx, req.Username, req.DisplayName, req.AvatarStyle)
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("Failed to set up profile")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateMe handles PUT /api/v1/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var update models.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.accountService.Update(ctx, update)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update profile")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// QRResponse carries the encoded QR payload for display
type QRResponse struct {
	Payload string `json:"payload"`
}

// MyQR handles GET /api/v1/me/qr
func (h *UserHandler) MyQR(w http.ResponseWriter, r *http.Request) {
	payload, err := h.accountService.QRPayload()
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, QRResponse{Payload: string(payload)})
}

// DeleteMe handles DELETE /api/v1/me
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.accountService.Delete(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to delete account")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
