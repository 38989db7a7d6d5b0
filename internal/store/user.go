package store

import (
	"encoding/json"
	"fmt"

	"mindping-core/internal/models"
)

// UserStore persists the current user's profile record.
type UserStore struct {
	kv KV
}

// NewUserStore creates a user store over kv.
func NewUserStore(kv KV) *UserStore {
	return &UserStore{kv: kv}
}

// Get returns the current user, or ErrNotFound if no profile exists yet.
func (s *UserStore) Get() (*models.User, error) {
	data, ok, err := s.kv.Get(KeyCurrentUser)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode current user: %w", err)
	}
	return &user, nil
}

// Set replaces the current user record.
func (s *UserStore) Set(user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode current user: %w", err)
	}
	if err := s.kv.Set(KeyCurrentUser, data); err != nil {
		return fmt.Errorf("failed to save current user: %w", err)
	}
	return nil
}

// Update applies a partial update to the current user and returns the merged
// record.
func (s *UserStore) Update(update models.UserUpdate) (*models.User, error) {
	user, err := s.Get()
	if err != nil {
		return nil, err
	}
	update.Apply(user)
	if err := s.Set(user); err != nil {
		return nil, err
	}
	return user, nil
}
