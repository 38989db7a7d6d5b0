package store

import (
	"encoding/json"
	"fmt"

	"mindping-core/internal/models"
)

// FriendStore persists the ordered friend list as a single JSON array.
// Mutations are read-modify-write over the whole collection; the device
// owner is the only writer in practice.
type FriendStore struct {
	kv KV
}

// NewFriendStore creates a friend store over kv.
func NewFriendStore(kv KV) *FriendStore {
	return &FriendStore{kv: kv}
}

// List returns the friend sequence in stored order.
func (s *FriendStore) List() ([]models.Friend, error) {
	data, ok, err := s.kv.Get(KeyFriends)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	if !ok {
		return []models.Friend{}, nil
	}
	var friends []models.Friend
	if err := json.Unmarshal(data, &friends); err != nil {
		return nil, fmt.Errorf("failed to decode friends: %w", err)
	}
	return friends, nil
}

// Get returns a friend by id.
func (s *FriendStore) Get(friendID string) (*models.Friend, error) {
	friends, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range friends {
		if friends[i].ID == friendID {
			return &friends[i], nil
		}
	}
	return nil, ErrNotFound
}

// Add appends a friend. Adding an id that already exists is a no-op.
func (s *FriendStore) Add(friend models.Friend) error {
	friends, err := s.List()
	if err != nil {
		return err
	}
	for _, f := range friends {
		if f.ID == friend.ID {
			return nil
		}
	}
	return s.save(append(friends, friend))
}

// Remove deletes the friend with the given id. Removing an unknown id is a
// no-op.
func (s *FriendStore) Remove(friendID string) error {
	friends, err := s.List()
	if err != nil {
		return err
	}
	kept := friends[:0]
	for _, f := range friends {
		if f.ID != friendID {
			kept = append(kept, f)
		}
	}
	return s.save(kept)
}

// Update applies a partial update to one friend's snapshot.
func (s *FriendStore) Update(friendID string, update models.FriendUpdate) error {
	friends, err := s.List()
	if err != nil {
		return err
	}
	for i := range friends {
		if friends[i].ID == friendID {
			update.Apply(&friends[i])
		}
	}
	return s.save(friends)
}

// Replace stores the sequence wholesale. Used for reordering; the caller
// supplies the complete ordered list.
func (s *FriendStore) Replace(friends []models.Friend) error {
	return s.save(friends)
}

func (s *FriendStore) save(friends []models.Friend) error {
	if friends == nil {
		friends = []models.Friend{}
	}
	data, err := json.Marshal(friends)
	if err != nil {
		return fmt.Errorf("failed to encode friends: %w", err)
	}
	if err := s.kv.Set(KeyFriends, data); err != nil {
		return fmt.Errorf("failed to save friends: %w", err)
	}
	return nil
}
