package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"huerta/internal/pkg/logger"
)

// CreateOrderHandler 负责持久化订单。
type CreateOrderHandler struct {
	NextHandler
}

func (h *CreateOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CreateOrder")
	defer span.End()

	order := orderCtx.Order
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.total", order.Total.String()),
		attribute.String("order.status", string(order.Status)),
	)
	if err := orderCtx.Orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist order failed")
		return errors.Wrap(err, "create order")
	}
	span.AddEvent("order persisted")
	logger.Ctx(ctx).Info().Str("order", order.ID).Str("total", order.Total.String()).Msg("order persisted")

	return h.executeNext(orderCtx)
}
