package push

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNSDispatcher delivers pushes through Apple's provider API with
// token-based auth.
type APNSDispatcher struct {
	client *apns2.Client
	topic  string
}

// NewAPNSDispatcher loads the signing key at keyPath and builds a production
// client.
func NewAPNSDispatcher(keyPath, keyID, teamID, topic string) (*APNSDispatcher, error) {
	authKey, err := token.AuthKeyFromFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}
	t := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}
	return &APNSDispatcher{
		client: apns2.NewTokenClient(t).Production(),
		topic:  topic,
	}, nil
}

// Dispatch sends one alert push. Rejections are logged, not returned as
// errors to the caller's caller; a failed push never blocks a ping.
func (d *APNSDispatcher) Dispatch(ctx context.Context, deviceToken, title, body string) error {
	p := payload.NewPayload().
		AlertTitle(title).
		AlertBody(body).
		Sound("default").
		Badge(1)

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       d.topic,
		Payload:     p,
	}

	resp, err := d.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	if !resp.Sent() {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("reason", resp.Reason).
			Msg("Push rejected by APNs")
		return fmt.Errorf("push rejected: %s", resp.Reason)
	}
	return nil
}
