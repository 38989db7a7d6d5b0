package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mindping-core/internal/clock"
	"mindping-core/internal/models"
	"mindping-core/internal/qr"
	"mindping-core/internal/remote"
	"mindping-core/internal/session"
	"mindping-core/internal/store"
)

const codeAttempts = 10

// AccountService manages the device owner's profile: setup, partial
// updates, push-token registration, and account deletion with peer
// notification.
type AccountService struct {
	session   *session.Session
	directory remote.Directory
	users     *store.UserStore
	friends   *store.FriendStore
	kv        store.KV
	clock     clock.Clock
}

// NewAccountService creates an account service.
func NewAccountService(
	sess *session.Session,
	directory remote.Directory,
	userStore *store.UserStore,
	friendStore *store.FriendStore,
	kv store.KV,
	clk clock.Clock,
) *AccountService {
	return &AccountService{
		session:   sess,
		directory: directory,
		users:     userStore,
		friends:   friendStore,
		kv:        kv,
		clock:     clk,
	}
}

// Setup creates the profile for this device. The username is stored
// lowercased; the friend code is generated with a uniqueness check against
// the directory. A second setup on the same device is rejected.
func (s *AccountService) Setup(ctx context.Context, username, displayName, avatarStyle string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	displayName = strings.TrimSpace(displayName)
	if username == "" || displayName == "" {
		return nil, fmt.Errorf("username and display name are required")
	}
	if _, err := s.users.Get(); err == nil {
		return nil, ErrProfileExists
	}
	if avatarStyle == "" {
		avatarStyle = models.DefaultAvatarStyle
	}
	if !models.ValidAvatarStyle(avatarStyle) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, avatarStyle)
	}

	user := &models.User{
		ID:          uuid.New().String(),
		Username:    username,
		FriendCode:  s.uniqueFriendCode(ctx),
		DisplayName: displayName,
		AvatarStyle: avatarStyle,
		AvatarSeed:  username,
		CreatedAt:   s.clock.Now().UnixMilli(),
	}

	if err := s.users.Set(user); err != nil {
		return nil, err
	}
	s.session.SetUser(user)
	s.syncRemote(ctx, user)

	log.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("friend_code", user.FriendCode).
		Msg("Profile created")
	return user, nil
}

// uniqueFriendCode generates a code and retries while the directory reports
// it taken. If the directory is unreachable the first candidate is accepted;
// the alphabet keeps the collision odds tiny.
func (s *AccountService) uniqueFriendCode(ctx context.Context) string {
	for i := 0; i < codeAttempts; i++ {
		code := qr.GenerateCode()
		_, err := s.directory.LookupByCode(ctx, code)
		if errors.Is(err, remote.ErrNotFound) {
			return code
		}
		if err != nil {
			log.Warn().Err(err).Msg("Friend-code uniqueness check unavailable, accepting candidate")
			return code
		}
	}
	// Every candidate collided; exceedingly unlikely with a 32^6 space.
	return qr.GenerateCode()
}

// EnsureFriendCode backfills a friend code for profiles created before
// codes existed. Called at engine start.
func (s *AccountService) EnsureFriendCode(ctx context.Context) error {
	user, err := s.users.Get()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.FriendCode != "" {
		return nil
	}

	user.FriendCode = s.uniqueFriendCode(ctx)
	if err := s.users.Set(user); err != nil {
		return err
	}
	s.session.SetUser(user)
	s.syncRemote(ctx, user)
	log.Info().Str("friend_code", user.FriendCode).Msg("Backfilled friend code")
	return nil
}

// Update applies a partial profile update and mirrors it to the directory.
func (s *AccountService) Update(ctx context.Context, update models.UserUpdate) (*models.User, error) {
	if update.AvatarStyle != nil && !models.ValidAvatarStyle(*update.AvatarStyle) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, *update.AvatarStyle)
	}
	user, err := s.users.Update(update)
	if err != nil {
		return nil, err
	}
	s.session.SetUser(user)
	s.syncRemote(ctx, user)
	return user, nil
}

// SetPushToken registers the device's push-delivery token.
func (s *AccountService) SetPushToken(ctx context.Context, token string) error {
	_, err := s.Update(ctx, models.UserUpdate{PushToken: &token})
	return err
}

// QRPayload returns the current user's encoded QR payload.
func (s *AccountService) QRPayload() ([]byte, error) {
	user, err := s.session.User()
	if err != nil {
		return nil, err
	}
	return qr.Encode(user)
}

// Delete removes the account: every friend gets an account_deleted
// notification so their edge to us can be pruned, then local state is wiped
// and the session ends. A failed notification write aborts the deletion so
// the UI can surface it and the user can retry.
func (s *AccountService) Delete(ctx context.Context) error {
	user, err := s.session.User()
	if err != nil {
		return err
	}
	friends, err := s.friends.List()
	if err != nil {
		return err
	}

	for _, f := range friends {
		n := &models.Notification{
			ID:          uuid.New().String(),
			Kind:        models.NotificationAccountDeleted,
			RecipientID: f.ID,
			UserID:      user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			CreatedAt:   s.clock.Now().UnixMilli(),
		}
		if err := s.directory.PutNotification(ctx, n); err != nil {
			return fmt.Errorf("failed to notify %s of account deletion: %w", f.Username, err)
		}
	}

	if err := store.ClearAll(s.kv); err != nil {
		return fmt.Errorf("failed to clear local state: %w", err)
	}
	s.session.Clear()
	log.Info().Str("user_id", user.ID).Msg("Account deleted")
	return nil
}

// syncRemote mirrors the profile to the directory, degrading to
// local-only on failure.
func (s *AccountService) syncRemote(ctx context.Context, user *models.User) {
	if err := s.directory.PutUser(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to sync profile to directory")
	}
}
