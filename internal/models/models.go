package models

// User represents the profile of a MindPing user. The current user's record
// is stored locally and mirrored to the remote directory.
type User struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	FriendCode  string  `json:"friendCode"`
	DisplayName string  `json:"displayName"`
	AvatarStyle string  `json:"avatarStyle,omitempty"`
	AvatarSeed  string  `json:"avatarSeed,omitempty"`
	Language    string  `json:"language,omitempty"`
	PushToken   *string `json:"pushToken,omitempty"`
	CreatedAt   int64   `json:"createdAt"`
}

// Friend is a directed local edge to another user, carrying a snapshot of
// that user's display fields taken at add time.
type Friend struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FriendCode  string `json:"friendCode"`
	DisplayName string `json:"displayName"`
	AvatarStyle string `json:"avatarStyle,omitempty"`
	AvatarSeed  string `json:"avatarSeed,omitempty"`
	AddedAt     int64  `json:"addedAt"`
	LastPingAt  int64  `json:"lastPingAt,omitempty"`
}

// Ping is a one-way "thinking of you" event. Timestamps are client-clock
// milliseconds. Pings are never deleted; only the read flag is mutated.
type Ping struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
}

// DailyStats holds per-calendar-day sent/received counters. Date is a local
// YYYY-MM-DD string.
type DailyStats struct {
	Date     string `json:"date"`
	Sent     int    `json:"sent"`
	Received int    `json:"received"`
}

// NotificationKind enumerates peer-directed notification types.
type NotificationKind string

const (
	NotificationAccountDeleted NotificationKind = "account_deleted"
)

// Notification is a peer-directed event record kept in the remote directory
// until the recipient consumes it.
type Notification struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"kind"`
	RecipientID string           `json:"recipientId"`
	UserID      string           `json:"userId"`
	Username    string           `json:"username"`
	DisplayName string           `json:"displayName"`
	CreatedAt   int64            `json:"createdAt"`
}

// UserUpdate carries a partial profile update. Non-nil fields replace the
// existing value; nil fields keep it.
type UserUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	AvatarStyle *string `json:"avatarStyle,omitempty"`
	AvatarSeed  *string `json:"avatarSeed,omitempty"`
	Language    *string `json:"language,omitempty"`
	PushToken   *string `json:"pushToken,omitempty"`
}

// Apply merges the update into u.
func (up UserUpdate) Apply(u *User) {
	if up.DisplayName != nil {
		u.DisplayName = *up.DisplayName
	}
	if up.AvatarStyle != nil {
		u.AvatarStyle = *up.AvatarStyle
	}
	if up.AvatarSeed != nil {
		u.AvatarSeed = *up.AvatarSeed
	}
	if up.Language != nil {
		u.Language = *up.Language
	}
	if up.PushToken != nil {
		u.PushToken = up.PushToken
	}
}

// FriendUpdate carries a partial friend-snapshot update.
type FriendUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	AvatarStyle *string `json:"avatarStyle,omitempty"`
	AvatarSeed  *string `json:"avatarSeed,omitempty"`
	LastPingAt  *int64  `json:"lastPingAt,omitempty"`
}

// Apply merges the update into f.
func (up FriendUpdate) Apply(f *Friend) {
	if up.DisplayName != nil {
		f.DisplayName = *up.DisplayName
	}
	if up.AvatarStyle != nil {
		f.AvatarStyle = *up.AvatarStyle
	}
	if up.AvatarSeed != nil {
		f.AvatarSeed = *up.AvatarSeed
	}
	if up.LastPingAt != nil {
		f.LastPingAt = *up.LastPingAt
	}
}

// AvatarStyles lists the avatar styles the UI can render.
var AvatarStyles = []string{
	"adventurer",
	"avataaars",
	"big-ears",
	"bottts",
	"fun-emoji",
	"lorelei",
	"micah",
	"notionists",
	"open-peeps",
	"pixel-art",
}

// DefaultAvatarStyle is used when a QR payload or directory record carries no
// style of its own.
const DefaultAvatarStyle = "avataaars"

// ValidAvatarStyle reports whether style is one the UI can render.
func ValidAvatarStyle(style string) bool {
	for _, s := range AvatarStyles {
		if s == style {
			return true
		}
	}
	return false
}
