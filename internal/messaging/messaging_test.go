package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/orderdesk/internal/config"
)

func TestNewClientNoop(t *testing.T) {
	var cfg config.Config
	cfg.Messaging.Enabled = false
	cfg.Messaging.Kafka.Topic = "orders.events"

	client, err := NewClient(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "orders.events", client.Topic())
	assert.NoError(t, client.Publish(context.Background(), []byte("k"), []byte("v"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, client.Consume(ctx, nil), context.DeadlineExceeded)
}

func TestNewClientUnsupportedDriver(t *testing.T) {
	var cfg config.Config
	cfg.Messaging.Enabled = true
	cfg.Messaging.Driver = "nats"

	_, err := NewClient(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestHeaderConversion(t *testing.T) {
	assert.Nil(t, kafkaHeaders(nil))
	assert.Nil(t, headerMap(nil))

	in := map[string]string{HeaderEventType: "order.created", "trace": "abc"}
	assert.Equal(t, in, headerMap(kafkaHeaders(in)))
}

func TestFromKafkaCopiesPayload(t *testing.T) {
	raw := kafka.Message{
		Topic:   "orders.events",
		Key:     []byte("order-1"),
		Value:   []byte(`{"type":"order.created"}`),
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte("order.created")}},
		Offset:  42,
	}

	msg := fromKafka(raw)
	raw.Value[0] = 'X'

	assert.Equal(t, "orders.events", msg.Topic)
	assert.Equal(t, "order-1", string(msg.Key))
	assert.Equal(t, `{"type":"order.created"}`, string(msg.Value))
	assert.Equal(t, "order.created", msg.Headers[HeaderEventType])
	assert.EqualValues(t, 42, msg.Offset)
}

func TestDeliverLogsAndSkipsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	raw := kafka.Message{Topic: "orders.events", Partition: 2, Offset: 7, Value: []byte("{}")}

	var seen []int64
	ok := deliver(context.Background(), logger, func(_ context.Context, msg Message) error {
		seen = append(seen, msg.Offset)
		return nil
	}, raw)
	assert.True(t, ok)
	assert.Zero(t, logs.Len())

	ok = deliver(context.Background(), logger, func(_ context.Context, msg Message) error {
		seen = append(seen, msg.Offset)
		return errors.New("bad payload")
	}, raw)
	assert.False(t, ok)
	assert.Equal(t, []int64{7, 7}, seen)

	entries := logs.FilterMessage("message handler failed; skipping").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "orders.events", fields["topic"])
	assert.EqualValues(t, 2, fields["partition"])
	assert.EqualValues(t, 7, fields["offset"])
	assert.Equal(t, "bad payload", fields["error"])
}
