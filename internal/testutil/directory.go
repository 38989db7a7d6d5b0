// Package testutil provides in-memory fakes for the engine's external
// boundaries: the remote directory, the subscription feed, and the push
// dispatcher.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mindping-core/internal/models"
	"mindping-core/internal/remote"
)

// ErrUnavailable simulates the directory being unreachable.
var ErrUnavailable = errors.New("directory unavailable")

// FakeDirectory is an in-memory remote.Directory. Set Offline to make every
// call fail the way a dropped connection would.
type FakeDirectory struct {
	mu            sync.Mutex
	Offline       bool
	users         map[string]*models.User
	friendships   map[string]bool
	pings         map[string]models.Ping
	notifications map[string]models.Notification
	nextPingID    int
}

// NewFakeDirectory creates an empty fake directory.
func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		users:         make(map[string]*models.User),
		friendships:   make(map[string]bool),
		pings:         make(map[string]models.Ping),
		notifications: make(map[string]models.Notification),
	}
}

// SetOffline toggles simulated unreachability.
func (d *FakeDirectory) SetOffline(offline bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Offline = offline
}

// AddUser seeds a user record.
func (d *FakeDirectory) AddUser(user *models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := *user
	d.users[user.ID] = &u
}

func (d *FakeDirectory) GetUser(ctx context.Context, userID string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return nil, ErrUnavailable
	}
	u, ok := d.users[userID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (d *FakeDirectory) LookupByUsername(ctx context.Context, username string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return nil, ErrUnavailable
	}
	username = strings.ToLower(strings.TrimSpace(username))
	for _, u := range d.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, remote.ErrNotFound
}

func (d *FakeDirectory) LookupByCode(ctx context.Context, code string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return nil, ErrUnavailable
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, u := range d.users {
		if u.FriendCode == code {
			out := *u
			return &out, nil
		}
	}
	return nil, remote.ErrNotFound
}

func (d *FakeDirectory) PutUser(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return ErrUnavailable
	}
	u := *user
	d.users[user.ID] = &u
	return nil
}

func edgeKey(userID, friendID string) string {
	pair := []string{userID, friendID}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

func (d *FakeDirectory) CreateFriendship(ctx context.Context, userID, friendID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return ErrUnavailable
	}
	d.friendships[edgeKey(userID, friendID)] = true
	return nil
}

// HasFriendship reports whether the undirected edge exists.
func (d *FakeDirectory) HasFriendship(userID, friendID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.friendships[edgeKey(userID, friendID)]
}

func (d *FakeDirectory) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return nil, ErrUnavailable
	}
	var ids []string
	for key := range d.friendships {
		parts := strings.SplitN(key, "_", 2)
		if parts[0] == userID {
			ids = append(ids, parts[1])
		} else if parts[1] == userID {
			ids = append(ids, parts[0])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *FakeDirectory) WritePing(ctx context.Context, senderID, receiverID string, timestamp int64) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return "", ErrUnavailable
	}
	d.nextPingID++
	id := fmt.Sprintf("remote-ping-%d", d.nextPingID)
	d.pings[id] = models.Ping{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Timestamp:  timestamp,
	}
	return id, nil
}

func (d *FakeDirectory) MarkPingRead(ctx context.Context, pingID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return ErrUnavailable
	}
	p, ok := d.pings[pingID]
	if !ok {
		return remote.ErrNotFound
	}
	p.Read = true
	d.pings[pingID] = p
	return nil
}

// Ping returns the stored document for a ping id.
func (d *FakeDirectory) Ping(pingID string) (models.Ping, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pings[pingID]
	return p, ok
}

// PingCount returns the number of stored ping documents.
func (d *FakeDirectory) PingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pings)
}

func (d *FakeDirectory) PutNotification(ctx context.Context, n *models.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return ErrUnavailable
	}
	d.notifications[n.ID] = *n
	return nil
}

func (d *FakeDirectory) Notifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return nil, ErrUnavailable
	}
	var out []models.Notification
	for _, n := range d.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *FakeDirectory) DeleteNotification(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Offline {
		return ErrUnavailable
	}
	delete(d.notifications, id)
	return nil
}

// NotificationCount returns the number of stored notifications.
func (d *FakeDirectory) NotificationCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications)
}
