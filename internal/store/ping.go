package store

import (
	"encoding/json"
	"fmt"

	"mindping-core/internal/models"
)

// PingStore persists the local mirror of ping history as an append-only JSON
// array. The canonical documents live in the remote directory; this copy
// exists for offline reads.
type PingStore struct {
	kv KV
}

// NewPingStore creates a ping store over kv.
func NewPingStore(kv KV) *PingStore {
	return &PingStore{kv: kv}
}

// List returns all locally mirrored pings in insertion order.
func (s *PingStore) List() ([]models.Ping, error) {
	data, ok, err := s.kv.Get(KeyPings)
	if err != nil {
		return nil, fmt.Errorf("failed to get pings: %w", err)
	}
	if !ok {
		return []models.Ping{}, nil
	}
	var pings []models.Ping
	if err := json.Unmarshal(data, &pings); err != nil {
		return nil, fmt.Errorf("failed to decode pings: %w", err)
	}
	return pings, nil
}

// Add appends a ping to the history. Returns true when the ping was new;
// a ping whose id is already mirrored is left untouched, which keeps
// re-delivered subscription snapshots idempotent.
func (s *PingStore) Add(ping models.Ping) (bool, error) {
	pings, err := s.List()
	if err != nil {
		return false, err
	}
	for _, p := range pings {
		if p.ID == ping.ID {
			return false, nil
		}
	}
	if err := s.save(append(pings, ping)); err != nil {
		return false, err
	}
	return true, nil
}

// MarkRead flips the read flag on the mirrored copy of a ping.
func (s *PingStore) MarkRead(pingID string) error {
	pings, err := s.List()
	if err != nil {
		return err
	}
	for i := range pings {
		if pings[i].ID == pingID {
			pings[i].Read = true
		}
	}
	return s.save(pings)
}

// Between returns pings exchanged between two users with timestamp >= since,
// in either direction.
func (s *PingStore) Between(userID1, userID2 string, since int64) ([]models.Ping, error) {
	pings, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []models.Ping
	for _, p := range pings {
		if p.Timestamp < since {
			continue
		}
		if (p.SenderID == userID1 && p.ReceiverID == userID2) ||
			(p.SenderID == userID2 && p.ReceiverID == userID1) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PingStore) save(pings []models.Ping) error {
	data, err := json.Marshal(pings)
	if err != nil {
		return fmt.Errorf("failed to encode pings: %w", err)
	}
	if err := s.kv.Set(KeyPings, data); err != nil {
		return fmt.Errorf("failed to save pings: %w", err)
	}
	return nil
}
