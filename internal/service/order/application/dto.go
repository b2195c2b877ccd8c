// internal/service/order/application/dto.go
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"huerta/internal/pkg/money"
	"huerta/internal/service/order/domain"
)

// OrderItem 是请求中的一行商品，价格字段即使传了也会被忽略
type OrderItem struct {
	ID        string `json:"id"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest 是下单用例的输入数据
type PlaceOrderRequest struct {
	Items           []OrderItem `json:"items"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	ShippingAddress string      `json:"shippingAddress,omitempty"`
	DiscountCode    string      `json:"discountCode,omitempty"`
	RedemptionID    string      `json:"redemptionId,omitempty"`

	// DiscountAmount 仅作参考，服务端不会使用
	DiscountAmount decimal.NullDecimal `json:"discountAmount,omitempty"`
	ExpectedTotal  decimal.NullDecimal `json:"expectedTotal,omitempty"`
	IdempotencyKey string              `json:"idempotencyKey,omitempty"`
}

// ToIntent 转换为领域层的下单意图，DiscountAmount 在这里被丢弃
func (r *PlaceOrderRequest) ToIntent() *domain.Intent {
	items := make([]domain.ItemRequest, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.ItemRequest{ProductID: it.ID, VariantID: it.VariantID, Quantity: it.Quantity}
	}
	in := &domain.Intent{
		Items:           items,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		Notes:           r.Notes,
		ShippingAddress: r.ShippingAddress,
		DiscountCode:    r.DiscountCode,
		RedemptionID:    r.RedemptionID,
		ExpectedTotal:   r.ExpectedTotal,
		IdempotencyKey:  r.IdempotencyKey,
	}
	in.Normalize()
	return in
}

// PlaceOrderResponse 是下单用例的输出数据
type PlaceOrderResponse struct {
	Success        bool            `json:"success"`
	OrderID        string          `json:"orderId"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Total          decimal.Decimal `json:"total"`
	Status         domain.Status   `json:"status"`
	Message        string          `json:"message"`
	Replayed       bool            `json:"replayed"`
}

func newPlaceOrderResponse(o *domain.Order, replayed bool) *PlaceOrderResponse {
	msg := "¡Gracias! Recibimos tu pedido"
	if replayed {
		msg = "Tu pedido ya había sido registrado"
	}
	return &PlaceOrderResponse{
		Success:        true,
		OrderID:        o.ID,
		Subtotal:       money.Round(o.Subtotal),
		DiscountAmount: money.Round(o.DiscountAmount),
		Total:          money.Round(o.Total),
		Status:         o.Status,
		Message:        msg,
		Replayed:       replayed,
	}
}

// OrderLineView 是后台展示的订单行
type OrderLineView struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// OrderView 是后台订单列表中的一项
type OrderView struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	Lines           []OrderLineView `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountCode    string          `json:"discountCode,omitempty"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	Total           decimal.Decimal `json:"total"`
	Status          domain.Status   `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func ToOrderView(o *domain.Order) OrderView {
	lines := make([]OrderLineView, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineView{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: money.Round(l.UnitPrice),
			LineTotal: money.Round(l.LineTotal),
		}
	}
	return OrderView{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		Notes:           o.Notes,
		ShippingAddress: o.ShippingAddress,
		Lines:           lines,
		Subtotal:        money.Round(o.Subtotal),
		DiscountCode:    o.DiscountCode,
		DiscountAmount:  money.Round(o.DiscountAmount),
		Total:           money.Round(o.Total),
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// UpdateStatusRequest 是后台修改订单状态的请求
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
