// Package push is the push-delivery boundary: best-effort dispatch of a
// title/body to a device token. Failures are logged and never surfaced to
// the sender.
package push

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Dispatcher delivers one push notification to a device token.
type Dispatcher interface {
	Dispatch(ctx context.Context, token, title, body string) error
}

// LogDispatcher is used when push is disabled in config; it records the
// would-be delivery and does nothing else.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, token, title, body string) error {
	log.Debug().
		Str("token", token).
		Str("title", title).
		Msg("Push disabled, skipping dispatch")
	return nil
}
