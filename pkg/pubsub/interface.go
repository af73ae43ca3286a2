package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
)

// Event represents a message published to the event bus.
type Event struct {
	Type      string          `json:"type"`
	Bridge    string          `json:"bridge"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType, bridge string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Bridge:    bridge,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// UnmarshalPayload unmarshals the event payload into the given struct.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

func decodeEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, errors.New("event without type")
	}
	return &event, nil
}

// deliver hands an event to a subscriber without blocking the driver. It
// reports false once ctx is done.
func deliver(ctx context.Context, ch chan<- *Event, event *Event) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	default:
		l := pkglog.Component("pubsub")
		l.Warn().Str(pkglog.FieldEventType, event.Type).Str("bridge", event.Bridge).Msg("event channel full, dropping event")
		return true
	}
}

// Publisher publishes events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber subscribes to events from the event bus.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
	Unsubscribe(ctx context.Context, channel string) error
}

// PubSub combines Publisher and Subscriber interfaces.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}
