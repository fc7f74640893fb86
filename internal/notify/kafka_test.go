package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeStats struct {
	published int
	failed    []string
}

func (f *fakeStats) NotificationPublished()           { f.published++ }
func (f *fakeStats) NotificationFailed(reason string) { f.failed = append(f.failed, reason) }

func newKafkaUnderTest(writer messageWriter, stats Stats) *KafkaDispatcher {
	d := NewKafkaDispatcher(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "price-notifications"}, stats, zerolog.Nop())
	d.writer = writer
	return d
}

func TestKafkaSendEncodesPayload(t *testing.T) {
	writer := &fakeWriter{}
	d := newKafkaUnderTest(writer, &fakeStats{})

	event := Event{To: "user@example.com", Subject: "Price Drop Alert!", Body: "dropped from 100 to 80"}
	if err := d.Send(context.Background(), event); err != nil {
		t.Fatalf("send must succeed: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected one queued message, got %d", len(writer.messages))
	}

	var payload map[string]string
	if err := json.Unmarshal(writer.messages[0].Value, &payload); err != nil {
		t.Fatalf("payload must be json: %v", err)
	}
	if payload["to"] != "user@example.com" || payload["subject"] != "Price Drop Alert!" || payload["body"] != "dropped from 100 to 80" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if string(writer.messages[0].Key) != "user@example.com" {
		t.Fatalf("message key should be the recipient, got %q", writer.messages[0].Key)
	}
}

func TestKafkaSendSubmissionFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker gone")}
	d := newKafkaUnderTest(writer, &fakeStats{})

	err := d.Send(context.Background(), Event{To: "user@example.com"})
	if !errors.Is(err, ErrPublish) {
		t.Fatalf("submission failure must wrap ErrPublish, got %v", err)
	}
}

func TestKafkaCompletionUpdatesStats(t *testing.T) {
	stats := &fakeStats{}
	d := newKafkaUnderTest(&fakeWriter{}, stats)

	d.onCompletion([]kafka.Message{{}, {}}, nil)
	if stats.published != 2 {
		t.Fatalf("expected 2 published, got %d", stats.published)
	}

	d.onCompletion([]kafka.Message{{}}, errors.New("timed out"))
	if len(stats.failed) != 1 || stats.failed[0] != "kafka-delivery" {
		t.Fatalf("unexpected failure stats: %v", stats.failed)
	}
}
