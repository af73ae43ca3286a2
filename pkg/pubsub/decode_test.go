package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent([]byte(`{"type":"control","bridge":"a","payload":{"address":"/rec","value":1}}`))
	require.NoError(t, err)
	assert.Equal(t, EventControl, event.Type)

	_, err = decodeEvent([]byte(`{"bridge":"a"}`))
	assert.Error(t, err)

	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeKafkaEventFiltersByKey(t *testing.T) {
	event, err := NewEvent(EventControl, "remote", ControlPayload{Address: "/mic", Value: 0})
	require.NoError(t, err)
	data, err := json.Marshal(event)
	require.NoError(t, err)

	topic := "obs-control"
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic},
		Key:            []byte("studio-a"),
		Value:          data,
	}

	got, ok := decodeKafkaEvent(msg, "studio-a")
	require.True(t, ok)
	assert.Equal(t, EventControl, got.Type)

	_, ok = decodeKafkaEvent(msg, "studio-b")
	assert.False(t, ok)

	msg.Value = []byte("{")
	_, ok = decodeKafkaEvent(msg, "studio-a")
	assert.False(t, ok)
}

func TestDeliverNeverBlocks(t *testing.T) {
	ch := make(chan *Event, 1)
	ctx, cancel := context.WithCancel(context.Background())

	assert.True(t, deliver(ctx, ch, &Event{Type: EventControl}))
	assert.True(t, deliver(ctx, ch, &Event{Type: EventControl}), "full channel drops")
	assert.Len(t, ch, 1)

	cancel()
	<-ch
	ch2 := make(chan *Event)
	assert.False(t, deliver(ctx, ch2, &Event{Type: EventControl}))
}
