package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"huerta/internal/pkg/logger"
	"huerta/internal/service/order/domain"
)

// NotificationHandler 是 Saga 流程的最后一步，通知在事务提交之后才发出，
// 回滚的订单不会出现在后台实时订单流里。
type NotificationHandler struct {
	NextHandler
}

func (h *NotificationHandler) Handle(orderCtx *OrderContext) error {
	if orderCtx.Notifier == nil {
		return h.executeNext(orderCtx)
	}
	event := domain.NewOrderCreated(orderCtx.Order)
	tracer, notifier := orderCtx.Tracer, orderCtx.Notifier

	orderCtx.AddAfterCommit(func(ctx context.Context) {
		ctx, span := tracer.Start(ctx, "saga.Notification")
		defer span.End()
		span.SetAttributes(attribute.String("order.id", event.OrderID))

		// 发送通知失败不影响下单结果，只记录下来
		if err := notifier.SendOrderCreated(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order", event.OrderID).Msg("failed to publish order notification")
			span.RecordError(err)
			return
		}
		span.AddEvent("order notification published")
	})

	return h.executeNext(orderCtx)
}
