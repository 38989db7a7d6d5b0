package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mindping-core/internal/clock"
	"mindping-core/internal/i18n"
	"mindping-core/internal/models"
	"mindping-core/internal/push"
	"mindping-core/internal/remote"
	"mindping-core/internal/session"
	"mindping-core/internal/store"
)

// resubscribeDelay is how long Run waits before redialing a dropped
// unread-ping feed.
const resubscribeDelay = 5 * time.Second

// Synchronizer reconciles ping state between the remote directory and the
// local mirror: it sends pings remote-first with local fallback, mirrors
// incoming unread pings exactly once per id, and keeps per-sender unread
// state for badges.
type Synchronizer struct {
	session    *session.Session
	directory  remote.Directory
	subscriber remote.Subscriber
	pings      *store.PingStore
	friends    *store.FriendStore
	stats      *store.StatsStore
	outbox     *Outbox
	dispatcher push.Dispatcher
	clock      clock.Clock
	cooldown   time.Duration

	mu       sync.RWMutex
	unread   []models.Ping
	onUnread func([]models.Ping)
}

// NewSynchronizer creates a ping synchronizer. cooldown zero disables the
// per-friend send cooldown.
func NewSynchronizer(
	sess *session.Session,
	directory remote.Directory,
	subscriber remote.Subscriber,
	pingStore *store.PingStore,
	friendStore *store.FriendStore,
	statsStore *store.StatsStore,
	outbox *Outbox,
	dispatcher push.Dispatcher,
	clk clock.Clock,
	cooldown time.Duration,
) *Synchronizer {
	return &Synchronizer{
		session:    sess,
		directory:  directory,
		subscriber: subscriber,
		pings:      pingStore,
		friends:    friendStore,
		stats:      statsStore,
		outbox:     outbox,
		dispatcher: dispatcher,
		clock:      clk,
		cooldown:   cooldown,
	}
}

// OnUnread registers the callback invoked with the full unread set after
// every subscription update.
func (s *Synchronizer) OnUnread(fn func([]models.Ping)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnread = fn
}

// SendPing sends a ping to a friend. The document is written to the
// directory first and mirrored locally under its assigned id; if the remote
// write fails the ping is mirrored under a locally generated id and the
// write is queued in the outbox, so the sender's own history stays
// consistent either way. Returns the ping id the mirror uses.
func (s *Synchronizer) SendPing(ctx context.Context, receiverID string) (string, error) {
	user, err := s.session.User()
	if err != nil {
		return "", err
	}
	friend, err := s.friends.Get(receiverID)
	if err != nil {
		return "", fmt.Errorf("receiver is not a friend: %w", err)
	}

	now := s.clock.Now()
	if s.cooldown > 0 && friend.LastPingAt > 0 {
		elapsed := now.Sub(time.UnixMilli(friend.LastPingAt))
		if elapsed < s.cooldown {
			return "", fmt.Errorf("%w: retry in %s", ErrCooldownActive, (s.cooldown - elapsed).Round(time.Second))
		}
	}

	timestamp := now.UnixMilli()
	pingID, err := s.directory.WritePing(ctx, user.ID, receiverID, timestamp)
	ping := models.Ping{
		ID:         pingID,
		SenderID:   user.ID,
		ReceiverID: receiverID,
		Timestamp:  timestamp,
	}
	if err != nil {
		// Degrade to local-only persistence; the outbox replays the
		// remote half later.
		ping.ID = uuid.New().String()
		log.Warn().
			Err(err).
			Str("receiver_id", receiverID).
			Str("local_id", ping.ID).
			Msg("Remote ping write failed, persisting locally")
		if qErr := s.outbox.QueueWritePing(ping); qErr != nil {
			log.Error().Err(qErr).Msg("Failed to queue ping in outbox")
		}
	}

	if _, err := s.pings.Add(ping); err != nil {
		return "", err
	}
	if err := s.stats.IncrementSent(localDate(now)); err != nil {
		return "", err
	}
	lastPing := timestamp
	if err := s.friends.Update(receiverID, models.FriendUpdate{LastPingAt: &lastPing}); err != nil {
		return "", err
	}

	s.notifyReceiver(ctx, user, receiverID)

	log.Info().
		Str("ping_id", ping.ID).
		Str("receiver_id", receiverID).
		Msg("Ping sent")
	return ping.ID, nil
}

// notifyReceiver best-effort pushes to the receiver's device. Failures are
// logged, never surfaced to the sender.
func (s *Synchronizer) notifyReceiver(ctx context.Context, sender *models.User, receiverID string) {
	receiver, err := s.directory.GetUser(ctx, receiverID)
	if err != nil {
		if !errors.Is(err, remote.ErrNotFound) {
			log.Warn().Err(err).Str("receiver_id", receiverID).Msg("Failed to look up receiver for push")
		}
		return
	}
	if receiver.PushToken == nil || *receiver.PushToken == "" {
		return
	}

	title := i18n.PingTitle(receiver.Language)
	body := i18n.PingBody(receiver.Language, sender.DisplayName)
	if err := s.dispatcher.Dispatch(ctx, *receiver.PushToken, title, body); err != nil {
		log.Warn().Err(err).Str("receiver_id", receiverID).Msg("Push dispatch failed")
	}
}

// Run flushes the outbox and keeps the unread-ping subscription open until
// ctx is canceled, redialing when the transport drops. Every reconnect
// flushes the outbox again.
func (s *Synchronizer) Run(ctx context.Context) error {
	userID := s.session.UserID()
	if userID == "" {
		return session.ErrNoUser
	}

	for {
		if err := s.outbox.Flush(ctx); err != nil {
			log.Error().Err(err).Msg("Outbox flush failed")
		}

		err := s.subscriber.Subscribe(ctx, userID, s.applySnapshot)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Dur("retry_in", resubscribeDelay).Msg("Unread-ping feed dropped")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(resubscribeDelay):
		}
	}
}

// applySnapshot mirrors a full unread-set snapshot into local storage. The
// feed may re-deliver the same snapshot; each ping id is mirrored and
// counted at most once.
func (s *Synchronizer) applySnapshot(pings []models.Ping) {
	for _, p := range pings {
		added, err := s.pings.Add(p)
		if err != nil {
			log.Error().Err(err).Str("ping_id", p.ID).Msg("Failed to mirror incoming ping")
			continue
		}
		if !added {
			continue
		}
		if err := s.stats.IncrementReceived(localDate(s.clock.Now())); err != nil {
			log.Error().Err(err).Msg("Failed to increment received counter")
		}
	}

	s.mu.Lock()
	s.unread = pings
	fn := s.onUnread
	s.mu.Unlock()

	if fn != nil {
		fn(pings)
	}
}

// Unread returns the current unread set, newest first as the feed delivers
// it.
func (s *Synchronizer) Unread() []models.Ping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Ping, len(s.unread))
	copy(out, s.unread)
	return out
}

// UnreadBySender returns unread counts keyed by sender id, for badges.
func (s *Synchronizer) UnreadBySender() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, p := range s.unread {
		counts[p.SenderID]++
	}
	return counts
}

// MarkRead flips the read flag on one ping, remotely and on the local
// mirror. A failed remote flip is queued in the outbox.
func (s *Synchronizer) MarkRead(ctx context.Context, pingID string) error {
	if err := s.directory.MarkPingRead(ctx, pingID); err != nil {
		log.Warn().Err(err).Str("ping_id", pingID).Msg("Remote mark-read failed, queuing")
		if qErr := s.outbox.QueueMarkRead(pingID); qErr != nil {
			return qErr
		}
	}
	if err := s.pings.MarkRead(pingID); err != nil {
		return err
	}

	s.mu.Lock()
	// The previous unread slice was handed to the OnUnread callback; filter
	// into a fresh slice so a consumer still holding it sees stable entries.
	kept := make([]models.Ping, 0, len(s.unread))
	for _, p := range s.unread {
		if p.ID != pingID {
			kept = append(kept, p)
		}
	}
	s.unread = kept
	s.mu.Unlock()
	return nil
}

// MarkFriendRead marks every currently-unread ping from one sender as read.
func (s *Synchronizer) MarkFriendRead(ctx context.Context, friendID string) error {
	s.mu.RLock()
	var ids []string
	for _, p := range s.unread {
		if p.SenderID == friendID {
			ids = append(ids, p.ID)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.MarkRead(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// localDate formats t as the local YYYY-MM-DD stats key.
func localDate(t time.Time) string {
	return t.Format("2006-01-02")
}
