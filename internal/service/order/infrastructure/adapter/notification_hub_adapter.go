package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"huerta/internal/service/order/domain"
)

// ErrFeedBusy 表示实时订单流的缓冲区已满，这条通知被丢弃
var ErrFeedBusy = errors.New("live feed buffer full")

// Broadcaster 由 push.Hub 实现
type Broadcaster interface {
	Broadcast(msg []byte) bool
}

// NotificationHubAdapter 在未启用 Kafka 时直接把通知推给后台的 websocket 连接。
type NotificationHubAdapter struct {
	hub Broadcaster
}

func NewNotificationHubAdapter(hub Broadcaster) *NotificationHubAdapter {
	return &NotificationHubAdapter{hub: hub}
}

func (a *NotificationHubAdapter) SendOrderCreated(ctx context.Context, event *domain.OrderCreated) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order notification")
	}
	if !a.hub.Broadcast(payload) {
		return ErrFeedBusy
	}
	return nil
}
