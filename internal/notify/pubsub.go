package notify

import (
	"context"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSubDispatcher publishes notification payloads to a Google Pub/Sub topic.
type PubSubDispatcher struct {
	topic     topicPublisher
	topicName string
	logger    zerolog.Logger
	stats     Stats
}

// NewPubSubDispatcher wraps an existing Pub/Sub topic handle. The caller owns
// the client lifecycle.
func NewPubSubDispatcher(topic *pubsub.Topic, stats Stats, logger zerolog.Logger) *PubSubDispatcher {
	return &PubSubDispatcher{
		topic:     topic,
		topicName: topic.String(),
		logger:    logger.With().Str("component", "notify_pubsub").Logger(),
		stats:     stats,
	}
}

// Send serializes the event and submits it to the topic. The publish result is
// drained on a background goroutine; the caller never blocks on delivery.
func (d *PubSubDispatcher) Send(ctx context.Context, event Event) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}

	result := d.topic.Publish(ctx, &pubsub.Message{Data: payload})

	go func() {
		// Deliberately detached from the caller's context: the batch loop has
		// already moved on by the time the result resolves.
		id, err := result.Get(context.Background())
		if err != nil {
			d.logger.Error().Err(err).Str("to", event.To).Str("topic", d.topicName).
				Msg("async pub/sub delivery failed")
			d.stats.NotificationFailed("pubsub-delivery")
			return
		}
		d.stats.NotificationPublished()
		d.logger.Debug().Str("message_id", id).Str("topic", d.topicName).Msg("pub/sub delivery confirmed")
	}()

	d.logger.Info().Str("to", event.To).Str("topic", d.topicName).Msg("notification queued")
	return nil
}

var _ Dispatcher = (*PubSubDispatcher)(nil)
