// Package notify publishes price-drop notifications to a message queue.
// Dispatch is fire-and-forget: Send hands the payload to the transport and
// returns; delivery completion is observed asynchronously and only logged
// and counted. The delivery contract is at-most-once per event.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSerialize indicates the event could not be encoded. Raised
	// synchronously, before any publish attempt.
	ErrSerialize = errors.New("notify: serialize event")
	// ErrPublish indicates the transport rejected the message on submission.
	ErrPublish = errors.New("notify: publish event")
)

// Event is one notification to be delivered to a user. It is transient:
// never persisted, never retried.
type Event struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher enqueues notification events on a queue backend.
type Dispatcher interface {
	Send(ctx context.Context, event Event) error
}

// Stats receives delivery outcomes from the async completion path.
type Stats interface {
	NotificationPublished()
	NotificationFailed(reason string)
}

// NopStats discards all delivery outcomes.
type NopStats struct{}

func (NopStats) NotificationPublished()      {}
func (NopStats) NotificationFailed(s string) {}

type wirePayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func encodeEvent(event Event) ([]byte, error) {
	payload, err := json.Marshal(wirePayload{
		To:      event.To,
		Subject: event.Subject,
		Body:    event.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return payload, nil
}
