package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaOptions parameterise the Kafka dispatcher.
type KafkaOptions struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes notification payloads to a Kafka topic. The
// underlying writer runs in async mode: WriteMessages only fails on
// submission, and delivery results arrive through the completion callback.
type KafkaDispatcher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
	stats  Stats
}

// NewKafkaDispatcher constructs a Kafka-backed dispatcher.
func NewKafkaDispatcher(opts KafkaOptions, stats Stats, logger zerolog.Logger) *KafkaDispatcher {
	d := &KafkaDispatcher{
		topic:  opts.Topic,
		logger: logger.With().Str("component", "notify_kafka").Logger(),
		stats:  stats,
	}
	d.writer = &kafka.Writer{
		Addr:       kafka.TCP(opts.Brokers...),
		Topic:      opts.Topic,
		Balancer:   &kafka.LeastBytes{},
		Async:      true,
		Completion: d.onCompletion,
	}
	return d
}

// Send serializes the event and hands it to the writer. It does not wait for
// broker acknowledgment.
func (d *KafkaDispatcher) Send(ctx context.Context, event Event) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}

	if err := d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.To),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("%w: topic %s: %v", ErrPublish, d.topic, err)
	}

	d.logger.Info().Str("to", event.To).Str("topic", d.topic).Msg("notification queued")
	return nil
}

// onCompletion runs on the writer's internal goroutine after delivery is
// resolved. Failures here never reach the caller.
func (d *KafkaDispatcher) onCompletion(messages []kafka.Message, err error) {
	if err != nil {
		d.logger.Error().Err(err).Int("messages", len(messages)).Str("topic", d.topic).
			Msg("async kafka delivery failed")
		for range messages {
			d.stats.NotificationFailed("kafka-delivery")
		}
		return
	}
	for range messages {
		d.stats.NotificationPublished()
	}
	d.logger.Debug().Int("messages", len(messages)).Str("topic", d.topic).Msg("kafka delivery confirmed")
}

// Close flushes and releases the writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

var _ Dispatcher = (*KafkaDispatcher)(nil)
