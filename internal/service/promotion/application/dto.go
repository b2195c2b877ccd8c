package application

import (
	"time"

	"github.com/shopspring/decimal"

	"huerta/internal/service/promotion/domain"
)

// ItemRef 是请求中的一行商品，只有 id 和数量，价格由服务端查询
type ItemRef struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// RedeemRequest 是兑换折扣码的请求体
type RedeemRequest struct {
	Code       string          `json:"code"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
	Items      []ItemRef       `json:"items,omitempty"`
	DryRun     bool            `json:"dryRun,omitempty"`
}

// RedeemResult 是兑换成功的结果
type RedeemResult struct {
	Success        bool            `json:"success"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	PromotionName  string          `json:"promotionName"`
	RedemptionID   string          `json:"redemptionId,omitempty"`
}

// SettleRequest 由下单流程在订单事务内调用
type SettleRequest struct {
	Code         string
	RedemptionID string
	Subtotal     decimal.Decimal
	Items        []domain.LineItem
	OrderID      string
}

// Settlement 是服务端重新计算出的折扣
type Settlement struct {
	Code           string
	RedemptionID   string
	PromotionName  string
	DiscountAmount decimal.Decimal
}

// CreatePromotionRequest 是后台创建促销的请求体
type CreatePromotionRequest struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	Value       decimal.Decimal     `json:"value"`
	MinPurchase decimal.NullDecimal `json:"minPurchase"`
	BuyQuantity int                 `json:"buyQuantity"`
	GetQuantity int                 `json:"getQuantity"`
	ProductIDs  []string            `json:"productIds"`
	Condition   string              `json:"condition"`
	Active      *bool               `json:"active"`
	StartsAt    *time.Time          `json:"startsAt"`
	EndsAt      *time.Time          `json:"endsAt"`
}

func (r *CreatePromotionRequest) ToDomain() *domain.Promotion {
	return &domain.Promotion{
		ID:          r.ID,
		Name:        r.Name,
		Type:        domain.DiscountType(r.Type),
		Value:       r.Value,
		MinPurchase: r.MinPurchase,
		BuyQuantity: r.BuyQuantity,
		GetQuantity: r.GetQuantity,
		ProductIDs:  r.ProductIDs,
		Condition:   r.Condition,
		Active:      r.Active == nil || *r.Active,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
	}
}

// CreateCodeRequest 是后台创建折扣码的请求体
type CreateCodeRequest struct {
	Code        string     `json:"code"`
	PromotionID string     `json:"promotionId"`
	MaxUses     *int       `json:"maxUses"`
	Active      *bool      `json:"active"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
}

// PromotionView 是后台列表中的促销
type PromotionView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	Value       decimal.Decimal     `json:"value"`
	MinPurchase decimal.NullDecimal `json:"minPurchase"`
	BuyQuantity int                 `json:"buyQuantity,omitempty"`
	GetQuantity int                 `json:"getQuantity,omitempty"`
	ProductIDs  []string            `json:"productIds,omitempty"`
	Condition   string              `json:"condition,omitempty"`
	Active      bool                `json:"active"`
	StartsAt    *time.Time          `json:"startsAt"`
	EndsAt      *time.Time          `json:"endsAt"`
}

func ToPromotionView(p *domain.Promotion) PromotionView {
	return PromotionView{
		ID:          p.ID,
		Name:        p.Name,
		Type:        string(p.Type),
		Value:       p.Value,
		MinPurchase: p.MinPurchase,
		BuyQuantity: p.BuyQuantity,
		GetQuantity: p.GetQuantity,
		ProductIDs:  p.ProductIDs,
		Condition:   p.Condition,
		Active:      p.Active,
		StartsAt:    p.StartsAt,
		EndsAt:      p.EndsAt,
	}
}

// CodeView 是后台列表中的折扣码及其使用情况
type CodeView struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	PromotionID string     `json:"promotionId"`
	MaxUses     *int       `json:"maxUses"`
	CurrentUses int        `json:"currentUses"`
	Active      bool       `json:"active"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
}

func ToCodeView(c *domain.DiscountCode) CodeView {
	return CodeView{
		ID:          c.ID,
		Code:        c.Code,
		PromotionID: c.PromotionID,
		MaxUses:     c.MaxUses,
		CurrentUses: c.CurrentUses,
		Active:      c.Active,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
	}
}
