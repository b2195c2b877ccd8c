package port

import (
	"context"

	"huerta/internal/service/order/domain"
)

// NotificationProducer 是消息生产者的出站端口。
type NotificationProducer interface {
	// SendOrderCreated 发送订单创建成功的通知。
	SendOrderCreated(ctx context.Context, event *domain.OrderCreated) error
}
