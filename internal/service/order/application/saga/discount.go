package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"huerta/internal/service/order/domain"
	"huerta/internal/service/order/domain/port"
)

// DiscountHandler 在同一事务内结算折扣码，金额按服务端小计重新计算。
// 客户端提交的折扣金额从不进入这里。
type DiscountHandler struct {
	NextHandler
}

func (h *DiscountHandler) Handle(orderCtx *OrderContext) error {
	in := orderCtx.Intent
	if in.DiscountCode == "" && in.RedemptionID == "" {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Discount")
	defer span.End()
	span.SetAttributes(
		attribute.String("discount.code", in.DiscountCode),
		attribute.String("discount.redemption_id", in.RedemptionID),
	)

	order := orderCtx.Order
	settlement, err := orderCtx.Discounts.Settle(ctx, &port.SettleRequest{
		OrderID:      order.ID,
		Code:         in.DiscountCode,
		RedemptionID: in.RedemptionID,
		Subtotal:     order.Subtotal,
		Lines:        order.Lines,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discount settlement rejected")
		var discErr *domain.DiscountError
		if errors.As(err, &discErr) {
			return err
		}
		return errors.Wrap(err, "settle discount")
	}

	order.ApplyDiscount(settlement.Code, settlement.RedemptionID, settlement.DiscountAmount)
	span.SetAttributes(attribute.String("discount.amount", order.DiscountAmount.String()))
	span.AddEvent("discount settled")

	return h.executeNext(orderCtx)
}
