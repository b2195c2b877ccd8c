package port

import (
	"context"

	"github.com/shopspring/decimal"

	"huerta/internal/service/order/domain"
)

// SettleRequest 描述一次下单时的折扣结算
type SettleRequest struct {
	OrderID      string
	Code         string
	RedemptionID string
	Subtotal     decimal.Decimal
	Lines        []domain.Line
}

// Settlement 是结算后由服务端确认的折扣
type Settlement struct {
	Code           string
	RedemptionID   string
	PromotionName  string
	DiscountAmount decimal.Decimal
}

// DiscountSettler 是折扣服务的出站端口。
type DiscountSettler interface {
	// Settle 在调用方的事务内重新校验折扣并绑定到订单。
	// 业务拒绝返回 *domain.DiscountError。
	Settle(ctx context.Context, req *SettleRequest) (*Settlement, error)
}
