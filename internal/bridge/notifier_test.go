package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dunkelstern/obs-touchosc/internal/osc"
	"github.com/dunkelstern/obs-touchosc/pkg/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu           sync.Mutex
	published    map[string][]*pubsub.Event
	subs         map[string]chan *pubsub.Event
	unsubscribed []string
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][]*pubsub.Event),
		subs:      make(map[string]chan *pubsub.Event),
	}
}

func (b *fakeBus) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], event)
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, channel string) (<-chan *pubsub.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *pubsub.Event, 8)
	b.subs[channel] = ch
	return ch, nil
}

func (b *fakeBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = append(b.unsubscribed, channel)
	return nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) events(channel string) []*pubsub.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*pubsub.Event(nil), b.published[channel]...)
}

func (b *fakeBus) subscription(channel string) (chan *pubsub.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[channel]
	return ch, ok
}

func TestNotifierPublishesStatus(t *testing.T) {
	bus := newFakeBus()
	n := NewNotifier("studio", bus, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = n.Run(ctx) }()

	n.Publish(pubsub.EventSceneSwitched, pubsub.SceneSwitchedPayload{Scene: "Main", Slot: 2})

	channel := pubsub.StatusChannel("studio")
	require.Eventually(t, func() bool { return len(bus.events(channel)) == 1 }, time.Second, 5*time.Millisecond)

	event := bus.events(channel)[0]
	assert.Equal(t, pubsub.EventSceneSwitched, event.Type)
	assert.Equal(t, "studio", event.Bridge)

	var payload pubsub.SceneSwitchedPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, pubsub.SceneSwitchedPayload{Scene: "Main", Slot: 2}, payload)
}

func TestNotifierDropsWhenFull(t *testing.T) {
	n := NewNotifier("studio", newFakeBus(), 1)

	n.Publish(pubsub.EventRecordingStarted, pubsub.OutputPayload{Active: true})
	n.Publish(pubsub.EventRecordingStopped, pubsub.OutputPayload{})
	assert.Len(t, n.queue, 1)
}

func TestNotifierServeControl(t *testing.T) {
	bus := newFakeBus()
	n := NewNotifier("studio", bus, 4)

	got := make(chan osc.Message, 4)
	fn := func(_ context.Context, msg osc.Message) error {
		got <- msg
		if msg.Address == "/rec" {
			return errors.New("rejected")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.ServeControl(ctx, fn) }()

	channel := pubsub.ControlChannel("studio")
	var sub chan *pubsub.Event
	require.Eventually(t, func() bool {
		var ok bool
		sub, ok = bus.subscription(channel)
		return ok
	}, time.Second, 5*time.Millisecond)

	ignored, err := pubsub.NewEvent(pubsub.EventSceneSwitched, "studio", pubsub.SceneSwitchedPayload{})
	require.NoError(t, err)
	sub <- ignored

	for _, p := range []pubsub.ControlPayload{
		{Address: "/rec", Value: 1},
		{Address: "/scene/1/2", Value: 1},
	} {
		event, err := pubsub.NewEvent(pubsub.EventControl, "remote", p)
		require.NoError(t, err)
		sub <- event
	}

	assert.Equal(t, osc.Message{Address: "/rec", Value: 1}, <-got)
	assert.Equal(t, osc.Message{Address: "/scene/1/2", Value: 1}, <-got)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{channel}, bus.unsubscribed)
	assert.Empty(t, got)
}

func TestNotifierDrivesEngine(t *testing.T) {
	h := newHarness(t, Config{Name: "studio"})
	h.e.scenes = []string{"Intro", "Main"}
	h.run(t)

	bus := newFakeBus()
	n := NewNotifier("studio", bus, 4)

	event, err := pubsub.NewEvent(pubsub.EventControl, "remote", pubsub.ControlPayload{Address: "/scene/1/2", Value: 1})
	require.NoError(t, err)
	n.handleControl(context.Background(), event, h.e.Control)

	assert.Equal(t, []string{"send /scene/1/2 1", "SetCurrentScene Main"}, h.tr.all())
}
