package adapter

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huerta/internal/service/order/domain"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type fakeHub struct {
	accept bool
	got    [][]byte
}

func (h *fakeHub) Broadcast(msg []byte) bool {
	if h.accept {
		h.got = append(h.got, msg)
	}
	return h.accept
}

func sampleEvent() *domain.OrderCreated {
	return domain.NewOrderCreated(&domain.Order{
		ID:           "order-1",
		CustomerName: "Ana",
		Total:        decimal.RequireFromString("1440"),
		CreatedAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
}

func TestNotificationKafkaAdapter(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewNotificationKafkaAdapter(w).SendOrderCreated(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-1", string(w.msgs[0].Key))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "order-1", body["orderId"])
	assert.Equal(t, float64(1440), body["total"])
	assert.Equal(t, "Nuevo pedido de Ana por $1440.00", body["message"])
}

func TestNotificationHubAdapter(t *testing.T) {
	hub := &fakeHub{accept: true}
	require.NoError(t, NewNotificationHubAdapter(hub).SendOrderCreated(context.Background(), sampleEvent()))
	require.Len(t, hub.got, 1)
	assert.Contains(t, string(hub.got[0]), `"orderId":"order-1"`)

	busy := &fakeHub{}
	assert.ErrorIs(t, NewNotificationHubAdapter(busy).SendOrderCreated(context.Background(), sampleEvent()), ErrFeedBusy)
}
