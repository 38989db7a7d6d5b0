package store

import (
	"encoding/json"
	"fmt"

	"mindping-core/internal/models"
)

// OutboxOp names a remote write that is waiting to be replayed.
type OutboxOp string

const (
	OutboxWritePing        OutboxOp = "write_ping"
	OutboxMarkRead         OutboxOp = "mark_read"
	OutboxCreateFriendship OutboxOp = "create_friendship"
)

// OutboxEntry is a remote write that failed and was queued locally. Entries
// replay in insertion order when the directory is reachable again.
type OutboxEntry struct {
	ID       string       `json:"id"`
	Op       OutboxOp     `json:"op"`
	Ping     *models.Ping `json:"ping,omitempty"`
	PingID   string       `json:"pingId,omitempty"`
	UserID   string       `json:"userId,omitempty"`
	FriendID string       `json:"friendId,omitempty"`
}

// OutboxStore persists the queue of pending remote writes.
type OutboxStore struct {
	kv KV
}

// NewOutboxStore creates an outbox store over kv.
func NewOutboxStore(kv KV) *OutboxStore {
	return &OutboxStore{kv: kv}
}

// List returns pending entries in insertion order.
func (s *OutboxStore) List() ([]OutboxEntry, error) {
	data, ok, err := s.kv.Get(KeyOutbox)
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox: %w", err)
	}
	if !ok {
		return []OutboxEntry{}, nil
	}
	var entries []OutboxEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode outbox: %w", err)
	}
	return entries, nil
}

// Append queues an entry.
func (s *OutboxStore) Append(entry OutboxEntry) error {
	entries, err := s.List()
	if err != nil {
		return err
	}
	return s.save(append(entries, entry))
}

// Replace stores the queue wholesale; the flusher calls this with whatever
// entries are still pending.
func (s *OutboxStore) Replace(entries []OutboxEntry) error {
	return s.save(entries)
}

func (s *OutboxStore) save(entries []OutboxEntry) error {
	if entries == nil {
		entries = []OutboxEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode outbox: %w", err)
	}
	if err := s.kv.Set(KeyOutbox, data); err != nil {
		return fmt.Errorf("failed to save outbox: %w", err)
	}
	return nil
}
