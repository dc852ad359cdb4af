package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes messages to the log. Used when no broker is configured.
type LogPublisher struct {
	Log *zerolog.Logger
}

func (p LogPublisher) Publish(_ context.Context, msg Message) error {
	p.Log.Info().
		Str("kind", string(msg.Kind)).
		Str("event_id", msg.EventID).
		Str("user_id", msg.UserID).
		Msg("notification")
	return nil
}
