package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"mindping-core/internal/models"
	"mindping-core/internal/services"
)

// FriendHandler handles friend-related HTTP requests
type FriendHandler struct {
	friendService *services.FriendService
	synchronizer  *services.Synchronizer
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(friendService *services.FriendService, synchronizer *services.Synchronizer) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
		synchronizer:  synchronizer,
	}
}

// ListFriends handles GET /api/v1/friends
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friendService.ListWithBadges(h.synchronizer.UnreadBySender())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list friends")
		respondError(w, "Failed to list friends", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, friends)
}

// AddFriendRequest represents the request body for adding a friend. Exactly
// one of qr_payload (raw scanned bytes), input (username or friend code), or
// an explicit friend snapshot is expected.
type AddFriendRequest struct {
	QRPayload string         `json:"qr_payload,omitempty"`
	Input     string         `json:"input,omitempty"`
	Friend    *models.Friend `json:"friend,omitempty"`
}

// AddFriend handles POST /api/v1/friends
func (h *FriendHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		friend *models.Friend
		err    error
	)
	switch {
	case req.QRPayload != "":
		friend, err = h.friendService.AddFromQR(ctx, []byte(req.QRPayload))
	case req.Input != "":
		friend, err = h.friendService.AddManual(ctx, req.Input)
	case req.Friend != nil:
		err = h.friendService.Add(ctx, *req.Friend)
		friend = req.Friend
	default:
		respondError(w, "qr_payload, input, or friend is required", http.StatusBadRequest)
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("Failed to add friend")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, friend)
}

// RemoveFriend handles DELETE /api/v1/friends/{friend_id}
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	friendID := chi.URLParam(r, "friend_id")
	if friendID == "" {
		respondError(w, "friend_id is required", http.StatusBadRequest)
		return
	}

	if err := h.friendService.Remove(friendID); err != nil {
		log.Error().Err(err).Str("friend_id", friendID).Msg("Failed to remove friend")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderRequest represents the request body for reordering friends
type ReorderRequest struct {
	FriendIDs []string `json:"friend_ids"`
}

// ReorderFriends handles PUT /api/v1/friends/order
func (h *FriendHandler) ReorderFriends(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.friendService.Reorder(req.FriendIDs); err != nil {
		log.Error().Err(err).Msg("Failed to reorder friends")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkFriendRead handles POST /api/v1/friends/{friend_id}/read
func (h *FriendHandler) MarkFriendRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	friendID := chi.URLParam(r, "friend_id")
	if friendID == "" {
		respondError(w, "friend_id is required", http.StatusBadRequest)
		return
	}

	if err := h.synchronizer.MarkFriendRead(ctx, friendID); err != nil {
		log.Error().Err(err).Str("friend_id", friendID).Msg("Failed to mark friend pings read")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
