// Package qr implements the payload exchanged through MindPing QR codes and
// the human-shareable friend-code format.
package qr

import (
	"encoding/json"
	"errors"

	"mindping-core/internal/models"
)

// ErrInvalidPayload is returned when a scanned payload cannot be parsed or
// is missing the required identity fields.
var ErrInvalidPayload = errors.New("invalid QR payload")

// UnknownCode substitutes for a missing friend code in scanned payloads
// produced by app versions that predate friend codes.
const UnknownCode = "UNKNOWN"

// Payload is the record serialized into a user's QR code. id and username
// are required; everything else is optional with defined fallbacks on the
// consuming side.
type Payload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FriendCode  string `json:"friendCode,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarStyle string `json:"avatarStyle,omitempty"`
	AvatarSeed  string `json:"avatarSeed,omitempty"`
}

// Encode serializes a user's identity for QR display, including every
// optional field that is available.
func Encode(user *models.User) ([]byte, error) {
	payload := Payload{
		ID:          user.ID,
		Username:    user.Username,
		FriendCode:  user.FriendCode,
		DisplayName: user.DisplayName,
		AvatarStyle: user.AvatarStyle,
		AvatarSeed:  user.AvatarSeed,
	}
	return json.Marshal(payload)
}

// Decode parses a scanned payload and normalizes it into a Friend snapshot
// with fallbacks applied. addedAt is the caller's clock in milliseconds.
func Decode(data []byte, addedAt int64) (*models.Friend, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	if payload.ID == "" || payload.Username == "" {
		return nil, ErrInvalidPayload
	}

	friend := models.Friend{
		ID:          payload.ID,
		Username:    payload.Username,
		FriendCode:  payload.FriendCode,
		DisplayName: payload.DisplayName,
		AvatarStyle: payload.AvatarStyle,
		AvatarSeed:  payload.AvatarSeed,
		AddedAt:     addedAt,
	}
	if friend.FriendCode == "" {
		friend.FriendCode = UnknownCode
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
	return &friend, nil
}
