package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelToTopicAndKey(t *testing.T) {
	tests := []struct {
		name      string
		channel   string
		wantTopic string
		wantKey   string
		wantErr   bool
	}{
		{name: "status", channel: StatusChannel("studio-a"), wantTopic: "obs-status", wantKey: "studio-a"},
		{name: "control", channel: ControlChannel("b"), wantTopic: "obs-control", wantKey: "b"},
		{name: "wrong segment", channel: "obs:room:a:status", wantErr: true},
		{name: "empty bridge", channel: "obs:bridge::status", wantErr: true},
		{name: "too short", channel: "obs-status", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, key, err := channelToTopicAndKey(tt.channel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTopic, topic)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestEventPayloadRoundTrip(t *testing.T) {
	event, err := NewEvent(EventControl, "studio-a", &ControlPayload{Address: "/rec", Value: 1})
	require.NoError(t, err)
	assert.Equal(t, "studio-a", event.Bridge)
	assert.False(t, event.Timestamp.IsZero())

	var payload ControlPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "/rec", payload.Address)
	assert.Equal(t, 1.0, payload.Value)
}

func TestNewPubSubDisabled(t *testing.T) {
	ps, err := NewPubSub(Config{Driver: DriverNone})
	assert.Nil(t, ps)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewPubSub(Config{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}
