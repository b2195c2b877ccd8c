package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"huerta/internal/pkg/mq"
	"huerta/internal/service/order/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
type NotificationKafkaAdapter struct {
	writer mq.MessageWriter
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(writer mq.MessageWriter) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// SendOrderCreated 以订单 id 为消息 key 发送，同一订单的消息落在同一分区。
func (a *NotificationKafkaAdapter) SendOrderCreated(ctx context.Context, event *domain.OrderCreated) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order notification")
	}
	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, a.writer, []byte(event.OrderID), eventBytes)
}
