package adapter

import (
	"context"

	"huerta/internal/service/order/domain"
	"huerta/internal/service/order/domain/port"
	promoapp "huerta/internal/service/promotion/application"
	promodomain "huerta/internal/service/promotion/domain"
)

// Settler 是 promotion 应用服务提供的结算能力
type Settler interface {
	SettleForOrder(ctx context.Context, req *promoapp.SettleRequest) (*promoapp.Settlement, error)
}

// DiscountAdapter 实现了 port.DiscountSettler 接口，并把折扣服务的业务拒绝翻译为 *domain.DiscountError。
type DiscountAdapter struct {
	settler Settler
}

func NewDiscountAdapter(settler Settler) *DiscountAdapter {
	return &DiscountAdapter{settler: settler}
}

func (a *DiscountAdapter) Settle(ctx context.Context, req *port.SettleRequest) (*port.Settlement, error) {
	items := make([]promodomain.LineItem, len(req.Lines))
	for i, l := range req.Lines {
		items[i] = promodomain.LineItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	settled, err := a.settler.SettleForOrder(ctx, &promoapp.SettleRequest{
		Code:         req.Code,
		RedemptionID: req.RedemptionID,
		Subtotal:     req.Subtotal,
		Items:        items,
		OrderID:      req.OrderID,
	})
	if err != nil {
		if reason, message, ok := promodomain.ReasonOf(err); ok {
			return nil, &domain.DiscountError{Reason: string(reason), Message: message}
		}
		return nil, err
	}
	return &port.Settlement{
		Code:           settled.Code,
		RedemptionID:   settled.RedemptionID,
		PromotionName:  settled.PromotionName,
		DiscountAmount: settled.DiscountAmount,
	}, nil
}
