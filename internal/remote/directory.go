// Package remote is the client side of the MindPing directory service: user
// lookup, friendship edges, ping documents, notifications, and the realtime
// unread-ping feed. The service itself is an external collaborator; nothing
// here implements its storage or query semantics.
package remote

import (
	"context"
	"errors"

	"mindping-core/internal/models"
)

// ErrNotFound marks a lookup miss. A miss is an expected outcome, not a
// service failure.
var ErrNotFound = errors.New("not found")

// Directory is the remote directory service boundary.
type Directory interface {
	// GetUser fetches a user record by id.
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// LookupByUsername finds a user by handle. The handle is matched
	// lowercased.
	LookupByUsername(ctx context.Context, username string) (*models.User, error)
	// LookupByCode finds a user by friend code. The code is matched
	// uppercased.
	LookupByCode(ctx context.Context, code string) (*models.User, error)
	// PutUser creates or updates the caller's user record.
	PutUser(ctx context.Context, user *models.User) error

	// CreateFriendship records an undirected friendship edge. The service
	// keys edges by the sorted pair of ids, so recording the same edge
	// from either side is idempotent.
	CreateFriendship(ctx context.Context, userID, friendID string) error
	// FriendIDs returns every user id connected to userID by a
	// friendship edge.
	FriendIDs(ctx context.Context, userID string) ([]string, error)

	// WritePing stores a ping document and returns its assigned id.
	WritePing(ctx context.Context, senderID, receiverID string, timestamp int64) (string, error)
	// MarkPingRead flips the read flag on a ping document.
	MarkPingRead(ctx context.Context, pingID string) error

	// PutNotification stores a peer-directed notification.
	PutNotification(ctx context.Context, n *models.Notification) error
	// Notifications returns pending notifications addressed to a user.
	Notifications(ctx context.Context, recipientID string) ([]models.Notification, error)
	// DeleteNotification removes a consumed notification.
	DeleteNotification(ctx context.Context, id string) error
}

// Subscriber delivers the full current unread-ping set for a user on every
// change. The stream ends when ctx is canceled or the transport drops.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, onChange func([]models.Ping)) error
}
