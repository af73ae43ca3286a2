package bridge

import (
	"context"
	"fmt"

	"github.com/dunkelstern/obs-touchosc/internal/osc"
	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	"github.com/dunkelstern/obs-touchosc/pkg/pubsub"
)

// Notifier forwards bridge state changes to the event bus and feeds remote
// control events back into the engine.
type Notifier struct {
	bridge string
	bus    pubsub.PubSub
	queue  chan *pubsub.Event
}

// NewNotifier creates a notifier for the named bridge instance.
func NewNotifier(bridge string, bus pubsub.PubSub, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 64
	}
	return &Notifier{
		bridge: bridge,
		bus:    bus,
		queue:  make(chan *pubsub.Event, buffer),
	}
}

// Publish implements StatusPublisher. It never blocks; events are dropped
// when the bus falls behind.
func (n *Notifier) Publish(eventType string, payload interface{}) {
	l := pkglog.Component("notifier")

	event, err := pubsub.NewEvent(eventType, n.bridge, payload)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldEventType, eventType).Msg("failed to encode status event")
		return
	}

	select {
	case n.queue <- event:
	default:
		l.Warn().Str(pkglog.FieldEventType, eventType).Msg("status queue full, dropping event")
	}
}

// Run publishes queued events until ctx is done.
func (n *Notifier) Run(ctx context.Context) error {
	l := pkglog.Component("notifier")
	channel := pubsub.StatusChannel(n.bridge)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-n.queue:
			if err := n.bus.Publish(ctx, channel, event); err != nil {
				l.Error().Err(err).Str(pkglog.FieldEventType, event.Type).Msg("failed to publish status event")
			}
		}
	}
}

// ControlFunc receives one remote control message.
type ControlFunc func(ctx context.Context, msg osc.Message) error

// ServeControl subscribes to the bridge control channel and hands every
// control event to fn until ctx is done.
func (n *Notifier) ServeControl(ctx context.Context, fn ControlFunc) error {
	l := pkglog.Component("notifier")
	channel := pubsub.ControlChannel(n.bridge)

	events, err := n.bus.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	defer func() {
		if err := n.bus.Unsubscribe(context.Background(), channel); err != nil {
			l.Warn().Err(err).Msg("failed to unsubscribe from control channel")
		}
	}()

	l.Info().Str("channel", channel).Msg("listening for remote control")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			n.handleControl(ctx, event, fn)
		}
	}
}

func (n *Notifier) handleControl(ctx context.Context, event *pubsub.Event, fn ControlFunc) {
	l := pkglog.Component("notifier")

	if event.Type != pubsub.EventControl {
		return
	}

	var payload pubsub.ControlPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		l.Warn().Err(err).Msg("invalid control payload")
		return
	}

	msg := osc.Message{Address: payload.Address, Value: payload.Value}
	if err := fn(ctx, msg); err != nil {
		l.Error().Err(err).Str(pkglog.FieldAddress, msg.Address).Float64(pkglog.FieldValue, msg.Value).Msg("remote control failed")
	}
}
