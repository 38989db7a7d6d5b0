package remote

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"mindping-core/internal/models"
)

// WSSubscriber consumes the directory's realtime feed of unread pings over a
// websocket. The server pushes the full current unread set (receiver = us,
// read = false, newest first) on every change.
type WSSubscriber struct {
	wsURL string
	token string
}

// NewWSSubscriber creates a subscriber dialing wsURL.
func NewWSSubscriber(wsURL, token string) *WSSubscriber {
	return &WSSubscriber{wsURL: wsURL, token: token}
}

// feedMessage is one frame from the unread-ping feed.
type feedMessage struct {
	Type  string        `json:"type"`
	Pings []models.Ping `json:"pings"`
}

// Subscribe dials the feed and delivers every unread-ping snapshot to
// onChange until ctx is canceled or the connection drops. Malformed frames
// are logged and skipped; the feed stays open.
func (s *WSSubscriber) Subscribe(ctx context.Context, userID string, onChange func([]models.Ping)) error {
	q := url.Values{"token": {s.token}, "user_id": {userID}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the owning context unmounts.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	log.Info().Str("user_id", userID).Msg("Subscribed to unread-ping feed")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("Unread-ping feed error")
			}
			return err
		}

		var msg feedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse feed message")
			continue
		}
		if msg.Type != "unread_pings" {
			continue
		}
		if msg.Pings == nil {
			msg.Pings = []models.Ping{}
		}
		onChange(msg.Pings)
	}
}
