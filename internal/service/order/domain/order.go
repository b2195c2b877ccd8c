// internal/service/order/domain/order.go
package domain

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"huerta/internal/pkg/money"
)

// ItemRequest 是顾客提交的一行商品，只有标识和数量，不含任何价格
type ItemRequest struct {
	ProductID string
	VariantID string
	Quantity  int
}

// Intent 是顾客的下单意图。价格、折扣和总价都由服务端计算，
// ExpectedTotal 只用于发现客户端看到的价格已经过期。
type Intent struct {
	Items           []ItemRequest
	CustomerName    string
	CustomerPhone   string
	Notes           string
	ShippingAddress string
	DiscountCode    string
	RedemptionID    string
	ExpectedTotal   decimal.NullDecimal
	IdempotencyKey  string
}

// Normalize 去掉文本字段两端的空白
func (in *Intent) Normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.Notes = strings.TrimSpace(in.Notes)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.DiscountCode = strings.TrimSpace(in.DiscountCode)
	in.RedemptionID = strings.TrimSpace(in.RedemptionID)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	for i := range in.Items {
		in.Items[i].ProductID = strings.TrimSpace(in.Items[i].ProductID)
		in.Items[i].VariantID = strings.TrimSpace(in.Items[i].VariantID)
	}
}

// Validate 在接触任何存储之前拒绝不完整的请求
func (in *Intent) Validate() error {
	if len(in.Items) == 0 {
		return &ValidationError{Message: "El carrito está vacío"}
	}
	for _, item := range in.Items {
		if item.ProductID == "" {
			return &ValidationError{Message: "Falta el identificador de un producto"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Message: "La cantidad debe ser mayor a cero"}
		}
	}
	if in.CustomerName == "" {
		return &ValidationError{Message: "Ingresá tu nombre para confirmar el pedido"}
	}
	if len(in.IdempotencyKey) > 128 {
		return &ValidationError{Message: "Clave de idempotencia inválida"}
	}
	return nil
}

// ProductIDs 返回去重后的商品 id，顺序与请求一致
func (in *Intent) ProductIDs() []string {
	seen := make(map[string]struct{}, len(in.Items))
	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Line 是订单中按服务端价格定价后的一行
type Line struct {
	ProductID string
	VariantID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// NewLine 按单价和数量生成订单行
func NewLine(productID, variantID, name string, quantity int, unitPrice decimal.Decimal) Line {
	return Line{
		ProductID: productID,
		VariantID: variantID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: money.Round(money.Times(unitPrice, quantity)),
	}
}

// Order 是订单聚合的根实体
type Order struct {
	ID              string
	CustomerName    string
	CustomerPhone   string
	Notes           string
	ShippingAddress string
	Lines           []Line
	Subtotal        decimal.Decimal
	DiscountCode    string
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
	RedemptionID    string
	IdempotencyKey  string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder 用下单意图创建一个尚未定价的订单，状态为 nuevo
func NewOrder(id string, in *Intent, now time.Time) *Order {
	return &Order{
		ID:              id,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		Notes:           in.Notes,
		ShippingAddress: in.ShippingAddress,
		IdempotencyKey:  in.IdempotencyKey,
		Status:          StatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SetLines 写入定价后的订单行并重新计算小计，已有折扣会被清除
func (o *Order) SetLines(lines []Line) {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	o.Lines = lines
	o.Subtotal = money.Round(subtotal)
	o.DiscountCode, o.RedemptionID = "", ""
	o.DiscountAmount = decimal.Zero
	o.Total = o.Subtotal
}

// ApplyDiscount 记录结算后的折扣，金额限制在 [0, 小计] 内
func (o *Order) ApplyDiscount(code, redemptionID string, amount decimal.Decimal) {
	o.DiscountCode = code
	o.RedemptionID = redemptionID
	o.DiscountAmount = money.Round(money.Clamp(amount, decimal.Zero, o.Subtotal))
	o.Total = o.Subtotal.Sub(o.DiscountAmount)
}

// TransitionTo 按状态机推进订单状态
func (o *Order) TransitionTo(next Status, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}
