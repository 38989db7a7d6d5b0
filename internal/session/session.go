// Package session holds the engine's per-run identity: the current user and
// the bearer token for the directory service. A Session is constructed at
// engine start and passed explicitly to every service; there is no
// package-level current user.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mindping-core/internal/models"
)

// ErrNoUser is returned before a profile has been set up on this device.
var ErrNoUser = errors.New("no current user")

// Session is the explicit context object for the current run.
type Session struct {
	mu    sync.RWMutex
	user  *models.User
	token string
}

// New creates a session for user with the directory bearer token.
func New(user *models.User, token string) *Session {
	return &Session{user: user, token: token}
}

// User returns the current user, or ErrNoUser if none is set.
func (s *Session) User() (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, ErrNoUser
	}
	u := *s.user
	return &u, nil
}

// UserID returns the current user's id, empty when no profile exists.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// SetUser replaces the session's user after profile setup or update.
func (s *Session) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Clear ends the session when the account is deleted.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// Token returns the directory bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// TokenExpired reports whether the bearer token carries an exp claim in the
// past. The token is issued and verified by the directory service; the
// client only inspects the claims it already holds, so the signature is not
// checked here.
func (s *Session) TokenExpired(now time.Time) bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
