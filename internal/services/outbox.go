package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mindping-core/internal/models"
	"mindping-core/internal/remote"
	"mindping-core/internal/store"
)

// Outbox queues remote writes that failed so they can be replayed once the
// directory is reachable again. Local state is always written first; the
// outbox only covers the remote half of a mirror.
type Outbox struct {
	store     *store.OutboxStore
	directory remote.Directory
}

// NewOutbox creates an outbox flushing against directory.
func NewOutbox(outboxStore *store.OutboxStore, directory remote.Directory) *Outbox {
	return &Outbox{store: outboxStore, directory: directory}
}

// QueueWritePing queues a ping document write.
func (o *Outbox) QueueWritePing(ping models.Ping) error {
	return o.store.Append(store.OutboxEntry{
		ID:   uuid.New().String(),
		Op:   store.OutboxWritePing,
		Ping: &ping,
	})
}

// QueueMarkRead queues a read-flag flip.
func (o *Outbox) QueueMarkRead(pingID string) error {
	return o.store.Append(store.OutboxEntry{
		ID:     uuid.New().String(),
		Op:     store.OutboxMarkRead,
		PingID: pingID,
	})
}

// QueueFriendship queues a friendship-edge write.
func (o *Outbox) QueueFriendship(userID, friendID string) error {
	return o.store.Append(store.OutboxEntry{
		ID:       uuid.New().String(),
		Op:       store.OutboxCreateFriendship,
		UserID:   userID,
		FriendID: friendID,
	})
}

// Pending returns the number of queued entries.
func (o *Outbox) Pending() (int, error) {
	entries, err := o.store.List()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Flush replays queued entries in order. Entries that still fail stay
// queued for the next flush; the rest are dropped.
func (o *Outbox) Flush(ctx context.Context) error {
	entries, err := o.store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	var remaining []store.OutboxEntry
	for _, entry := range entries {
		if err := o.replay(ctx, entry); err != nil {
			log.Warn().
				Err(err).
				Str("entry_id", entry.ID).
				Str("op", string(entry.Op)).
				Msg("Outbox replay failed, keeping entry")
			remaining = append(remaining, entry)
			continue
		}
		log.Debug().
			Str("entry_id", entry.ID).
			Str("op", string(entry.Op)).
			Msg("Outbox entry replayed")
	}
	return o.store.Replace(remaining)
}

func (o *Outbox) replay(ctx context.Context, entry store.OutboxEntry) error {
	switch entry.Op {
	case store.OutboxWritePing:
		// The replayed document gets a fresh remote id; the locally
		// generated id stays on the mirror, which is a cache, not the
		// source of truth.
		_, err := o.directory.WritePing(ctx, entry.Ping.SenderID, entry.Ping.ReceiverID, entry.Ping.Timestamp)
		return err
	case store.OutboxMarkRead:
		return o.directory.MarkPingRead(ctx, entry.PingID)
	case store.OutboxCreateFriendship:
		return o.directory.CreateFriendship(ctx, entry.UserID, entry.FriendID)
	default:
		// Unknown entries are dropped rather than wedging the queue.
		log.Warn().Str("op", string(entry.Op)).Msg("Dropping unknown outbox entry")
		return nil
	}
}
