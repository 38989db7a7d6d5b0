package testutil

import (
	"context"

	"mindping-core/internal/models"
)

// FakeSubscriber feeds unread-set snapshots pushed through Snapshots to the
// subscriber callback, the way the websocket feed would.
type FakeSubscriber struct {
	Snapshots chan []models.Ping
}

// NewFakeSubscriber creates a subscriber with a buffered snapshot channel.
func NewFakeSubscriber() *FakeSubscriber {
	return &FakeSubscriber{Snapshots: make(chan []models.Ping, 16)}
}

func (s *FakeSubscriber) Subscribe(ctx context.Context, userID string, onChange func([]models.Ping)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snapshot := <-s.Snapshots:
			onChange(snapshot)
		}
	}
}
