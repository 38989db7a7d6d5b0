package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mindping-core/internal/qr"
	"mindping-core/internal/remote"
	"mindping-core/internal/services"
	"mindping-core/internal/session"
	"mindping-core/internal/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps service errors onto HTTP statuses: validation failures are
// 400/409, misses 404, an active cooldown 429, everything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrUnknownStyle),
		errors.Is(err, qr.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSelfAdd),
		errors.Is(err, services.ErrDuplicateFriend),
		errors.Is(err, services.ErrProfileExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, remote.ErrNotFound),
		errors.Is(err, session.ErrNoUser):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
