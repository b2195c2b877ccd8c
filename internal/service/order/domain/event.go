// internal/service/order/domain/event.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreated 是订单提交成功后发布的通知事件，后台实时订单流消费它
type OrderCreated struct {
	OrderID      string          `json:"orderId"`
	CustomerName string          `json:"customerName"`
	Total        decimal.Decimal `json:"total"`
	Message      string          `json:"message"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewOrderCreated 从已持久化的订单生成通知事件
func NewOrderCreated(o *Order) *OrderCreated {
	return &OrderCreated{
		OrderID:      o.ID,
		CustomerName: o.CustomerName,
		Total:        o.Total,
		Message:      fmt.Sprintf("Nuevo pedido de %s por $%s", o.CustomerName, o.Total.StringFixed(2)),
		CreatedAt:    o.CreatedAt,
	}
}
