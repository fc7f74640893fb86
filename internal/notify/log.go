package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDispatcher writes events to the log instead of a queue. Used when no
// queue backend is configured, typically in development.
type LogDispatcher struct {
	logger zerolog.Logger
	stats  Stats
}

// NewLogDispatcher constructs a log-only dispatcher.
func NewLogDispatcher(stats Stats, logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{
		logger: logger.With().Str("component", "notify_log").Logger(),
		stats:  stats,
	}
}

// Send logs the event and counts it as published.
func (d *LogDispatcher) Send(ctx context.Context, event Event) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	d.logger.Info().Str("to", event.To).RawJSON("payload", payload).Msg("notification (log backend)")
	d.stats.NotificationPublished()
	return nil
}

var _ Dispatcher = (*LogDispatcher)(nil)
