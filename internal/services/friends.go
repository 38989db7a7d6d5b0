package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"mindping-core/internal/clock"
	"mindping-core/internal/models"
	"mindping-core/internal/qr"
	"mindping-core/internal/remote"
	"mindping-core/internal/session"
	"mindping-core/internal/store"
)

// FriendService owns the ordered local friend list and its reconciliation
// with the directory: resolving candidates by QR payload, handle, or friend
// code, recording friendship edges, and pruning edges for deleted accounts.
type FriendService struct {
	session   *session.Session
	directory remote.Directory
	friends   *store.FriendStore
	outbox    *Outbox
	clock     clock.Clock
}

// NewFriendService creates a friend service.
func NewFriendService(
	sess *session.Session,
	directory remote.Directory,
	friendStore *store.FriendStore,
	outbox *Outbox,
	clk clock.Clock,
) *FriendService {
	return &FriendService{
		session:   sess,
		directory: directory,
		friends:   friendStore,
		outbox:    outbox,
		clock:     clk,
	}
}

// List returns the friend sequence, insertion/reorder order preserved.
func (s *FriendService) List() ([]models.Friend, error) {
	return s.friends.List()
}

// Get returns one friend by id.
func (s *FriendService) Get(friendID string) (*models.Friend, error) {
	return s.friends.Get(friendID)
}

// FriendWithBadge is a friend merged with their unread-ping count for badge
// display.
type FriendWithBadge struct {
	models.Friend
	UnreadCount int `json:"unreadCount"`
}

// ListWithBadges merges the friend sequence with unread counts keyed by
// sender id.
func (s *FriendService) ListWithBadges(unreadBySender map[string]int) ([]FriendWithBadge, error) {
	friends, err := s.friends.List()
	if err != nil {
		return nil, err
	}
	out := make([]FriendWithBadge, 0, len(friends))
	for _, f := range friends {
		out = append(out, FriendWithBadge{Friend: f, UnreadCount: unreadBySender[f.ID]})
	}
	return out, nil
}

// Add validates and appends a friend, then records the friendship edge
// remotely (outboxed if the directory is unreachable). Self-adds and
// incomplete snapshots are rejected before any I/O; adding an existing
// friend returns ErrDuplicateFriend and changes nothing.
func (s *FriendService) Add(ctx context.Context, friend models.Friend) error {
	if friend.ID == "" || friend.Username == "" {
		return ErrMissingFields
	}

	user, err := s.session.User()
	if err != nil {
		return err
	}
	if friend.ID == user.ID || strings.EqualFold(friend.Username, user.Username) {
		return ErrSelfAdd
	}

	if _, err := s.friends.Get(friend.ID); err == nil {
		return ErrDuplicateFriend
	}

	if friend.AddedAt == 0 {
		friend.AddedAt = s.clock.Now().UnixMilli()
	}
	if err := s.friends.Add(friend); err != nil {
		return err
	}

	if err := s.directory.CreateFriendship(ctx, user.ID, friend.ID); err != nil {
		log.Warn().
			Err(err).
			Str("friend_id", friend.ID).
			Msg("Remote friendship write failed, queuing")
		if qErr := s.outbox.QueueFriendship(user.ID, friend.ID); qErr != nil {
			return qErr
		}
	}

	log.Info().
		Str("friend_id", friend.ID).
		Str("username", friend.Username).
		Msg("Friend added")
	return nil
}

// AddFromQR decodes a scanned payload and adds the friend it describes.
func (s *FriendService) AddFromQR(ctx context.Context, payload []byte) (*models.Friend, error) {
	friend, err := qr.Decode(payload, s.clock.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if err := s.Add(ctx, *friend); err != nil {
		return nil, err
	}
	return friend, nil
}

// AddManual resolves free-form input and adds the resolved user. Input with
// the friend-code shape is looked up as a code first; a miss falls back to a
// username lookup, since a 6-character username can share the shape.
func (s *FriendService) AddManual(ctx context.Context, input string) (*models.Friend, error) {
	var (
		found *models.User
		err   error
	)
	if qr.LooksLikeCode(input) {
		found, err = s.directory.LookupByCode(ctx, qr.NormalizeCode(input))
		if errors.Is(err, remote.ErrNotFound) {
			found, err = s.directory.LookupByUsername(ctx, input)
		}
	} else {
		found, err = s.directory.LookupByUsername(ctx, input)
	}
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return nil, fmt.Errorf("user %q: %w", input, remote.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up %q: %w", input, err)
	}

	friend := snapshotFromUser(found, s.clock.Now().UnixMilli())
	if err := s.Add(ctx, friend); err != nil {
		return nil, err
	}
	return &friend, nil
}

// Remove deletes the local edge. The directory is not told; unfriending is
// one-directional and local.
func (s *FriendService) Remove(friendID string) error {
	if err := s.friends.Remove(friendID); err != nil {
		return err
	}
	log.Info().Str("friend_id", friendID).Msg("Friend removed")
	return nil
}

// Update applies a partial update to one friend's snapshot.
func (s *FriendService) Update(friendID string, update models.FriendUpdate) error {
	return s.friends.Update(friendID, update)
}

// Reorder replaces the stored sequence with the given id order. The order
// must be a permutation of the current list.
func (s *FriendService) Reorder(orderedIDs []string) error {
	friends, err := s.friends.List()
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(friends) {
		return ErrInvalidOrder
	}

	byID := make(map[string]models.Friend, len(friends))
	for _, f := range friends {
		byID[f.ID] = f
	}
	reordered := make([]models.Friend, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		f, ok := byID[id]
		if !ok {
			return ErrInvalidOrder
		}
		reordered = append(reordered, f)
		delete(byID, id)
	}
	return s.friends.Replace(reordered)
}

// PruneDeleted consumes account-deletion notifications addressed to the
// current user, removing the corresponding local edges and deleting each
// notification once handled.
func (s *FriendService) PruneDeleted(ctx context.Context) error {
	userID := s.session.UserID()
	if userID == "" {
		return session.ErrNoUser
	}

	notifications, err := s.directory.Notifications(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}

	for _, n := range notifications {
		if n.Kind != models.NotificationAccountDeleted {
			continue
		}
		if err := s.friends.Remove(n.UserID); err != nil {
			return err
		}
		if err := s.directory.DeleteNotification(ctx, n.ID); err != nil {
			log.Warn().Err(err).Str("notification_id", n.ID).Msg("Failed to delete consumed notification")
			continue
		}
		log.Info().
			Str("friend_id", n.UserID).
			Str("username", n.Username).
			Msg("Pruned friend after account deletion")
	}
	return nil
}

// snapshotFromUser denormalizes a directory record into a Friend snapshot
// with the same fallbacks a QR payload gets.
func snapshotFromUser(user *models.User, addedAt int64) models.Friend {
	friend := models.Friend{
		ID:          user.ID,
		Username:    user.Username,
		FriendCode:  user.FriendCode,
		DisplayName: user.DisplayName,
		AvatarStyle: user.AvatarStyle,
		AvatarSeed:  user.AvatarSeed,
		AddedAt:     addedAt,
	}
	if friend.FriendCode == "" {
		friend.FriendCode = qr.UnknownCode
	}
	if friend.DisplayName == "" {
		friend.DisplayName = friend.Username
	}
	if friend.AvatarStyle == "" {
		friend.AvatarStyle = models.DefaultAvatarStyle
	}
	if friend.AvatarSeed == "" {
		friend.AvatarSeed = friend.Username
	}
	return friend
}
