package domain

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"huerta/internal/pkg/money"
)

// DiscountType 决定折扣金额的计算方式
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	DiscountTypeBuyXGetY    DiscountType = "buy_x_get_y"
)

// Promotion 定义优惠规则，可以被多个折扣码引用。
type Promotion struct {
	ID          string
	Name        string
	Type        DiscountType
	Value       decimal.Decimal // percentage: 0-100; fixed_amount: 金额
	MinPurchase decimal.NullDecimal
	BuyQuantity int
	GetQuantity int
	// ProductIDs 限定买赠适用的商品，为空表示全部商品
	ProductIDs []string
	// Condition 是可选的 CEL 表达式，例如 `item_count >= 3`
	Condition string
	Active    bool
	StartsAt  *time.Time
	EndsAt    *time.Time
	CreatedAt time.Time
}

// LineItem 是计算买赠折扣时使用的订单行，单价来自商品目录
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Validate 校验后台创建的促销
func (p *Promotion) Validate() error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(ErrInvalidPromotion, "id and name are required")
	}
	if p.MinPurchase.Valid && p.MinPurchase.Decimal.IsNegative() {
		return errors.Wrap(ErrInvalidPromotion, "minPurchase must not be negative")
	}
	if p.StartsAt != nil && p.EndsAt != nil && p.EndsAt.Before(*p.StartsAt) {
		return errors.Wrap(ErrInvalidPromotion, "endsAt is before startsAt")
	}
	switch p.Type {
	case DiscountTypePercentage:
		if p.Value.IsNegative() || p.Value.GreaterThan(decimal.NewFromInt(100)) {
			return errors.Wrap(ErrInvalidPromotion, "percentage must be between 0 and 100")
		}
	case DiscountTypeFixedAmount:
		if p.Value.IsNegative() {
			return errors.Wrap(ErrInvalidPromotion, "amount must not be negative")
		}
	case DiscountTypeBuyXGetY:
		if p.BuyQuantity < 1 || p.GetQuantity < 1 {
			return errors.Wrap(ErrInvalidPromotion, "buyQuantity and getQuantity must be at least 1")
		}
	default:
		return errors.Wrapf(ErrInvalidPromotion, "unknown type %q", p.Type)
	}
	return nil
}

// CheckMinimum 校验最低消费
func (p *Promotion) CheckMinimum(orderTotal decimal.Decimal) error {
	if p.MinPurchase.Valid && orderTotal.LessThan(p.MinPurchase.Decimal) {
		return &MinimumPurchaseError{Minimum: money.Round(p.MinPurchase.Decimal)}
	}
	return nil
}

// DiscountFor 计算折扣金额，结果取整到分并限制在 [0, orderTotal]。
// 买赠类型需要 items，没有 items 时折扣为 0。
func (p *Promotion) DiscountFor(orderTotal decimal.Decimal, items []LineItem) decimal.Decimal {
	var amount decimal.Decimal
	switch p.Type {
	case DiscountTypePercentage:
		amount = money.Percent(orderTotal, p.Value)
	case DiscountTypeFixedAmount:
		amount = money.Round(p.Value)
	case DiscountTypeBuyXGetY:
		amount = money.Round(p.freeUnitsValue(items))
	}
	return money.Clamp(amount, decimal.Zero, orderTotal)
}

// freeUnitsValue 每买 buy 件送 get 件：每组 buy+get 件中有 get 件免费
func (p *Promotion) freeUnitsValue(items []LineItem) decimal.Decimal {
	group := p.BuyQuantity + p.GetQuantity
	if group <= 0 || p.GetQuantity <= 0 {
		return decimal.Zero
	}
	scope := make(map[string]struct{}, len(p.ProductIDs))
	for _, id := range p.ProductIDs {
		scope[id] = struct{}{}
	}
	total := decimal.Zero
	for _, it := range items {
		if len(scope) > 0 {
			if _, ok := scope[it.ProductID]; !ok {
				continue
			}
		}
		free := (it.Quantity / group) * p.GetQuantity
		if free > 0 {
			total = total.Add(money.Times(it.UnitPrice, free))
		}
	}
	return total
}

func checkWindow(startsAt, endsAt *time.Time, now time.Time) error {
	if startsAt != nil && now.Before(*startsAt) {
		return ErrPromotionNotStarted
	}
	if endsAt != nil && now.After(*endsAt) {
		return ErrPromotionExpired
	}
	return nil
}
