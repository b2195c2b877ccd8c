package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"huerta/internal/pkg/money"
	"huerta/internal/service/order/domain"
)

// PriceCheckHandler 比较客户端看到的总价和服务端总价，偏差超过容忍度时拒绝下单，
// 让顾客先确认新价格。未提供预期总价时跳过。
type PriceCheckHandler struct {
	NextHandler
}

func (h *PriceCheckHandler) Handle(orderCtx *OrderContext) error {
	expected := orderCtx.Intent.ExpectedTotal
	if !expected.Valid {
		return h.executeNext(orderCtx)
	}

	_, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PriceCheck")
	defer span.End()

	total := orderCtx.Order.Total
	span.SetAttributes(
		attribute.String("order.expected_total", expected.Decimal.String()),
		attribute.String("order.total", total.String()),
	)
	if !money.WithinTolerance(total, expected.Decimal, orderCtx.PriceTolerance) {
		err := &domain.PriceChangedError{ExpectedTotal: expected.Decimal, Total: total}
		span.RecordError(err)
		span.SetStatus(codes.Error, "price changed")
		return err
	}
	return h.executeNext(orderCtx)
}
