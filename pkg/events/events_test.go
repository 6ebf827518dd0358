package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantcore/pkg/logger"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisherEncodesEvents(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	err := p.Publish(context.Background(),
		New(OrderCreated, "o1", map[string]string{"total": "13.5"}),
		New(InventoryLowStock, "flour", nil),
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "o1", string(w.msgs[0].Key))
	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, OrderCreated, decoded.Type)

	last := func(m kafkago.Message) string { return string(m.Headers[len(m.Headers)-1].Value) }
	assert.Equal(t, OrderCreated, last(w.msgs[0]))
	assert.Equal(t, InventoryLowStock, last(w.msgs[1]))
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{w: &fakeWriter{err: boom}}
	err := p.Publish(context.Background(), New(OrderCreated, "o1", nil))
	assert.ErrorIs(t, err, boom)
}

type failing struct{}

func (failing) Publish(context.Context, ...Event) error { return errors.New("unavailable") }

func TestEmitNeverFails(t *testing.T) {
	Emit(context.Background(), failing{}, logger.Nop(), New(OrderCreated, "o1", nil))
	Emit(context.Background(), nil, logger.Nop(), New(OrderCreated, "o1", nil))

	var r Recorder
	Emit(context.Background(), &r, logger.Nop(), New(OrderCreated, "o1", nil), New(OrderStatusChanged, "o1", nil))
	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(OrderStatusChanged), 1)
}
