package api

import (
	"github.com/shopspring/decimal"
)

// Product 是店面目录中的商品
type Product struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	CategoryID     string              `json:"categoryId"`
	Unit           string              `json:"unit"`
	Price          decimal.Decimal     `json:"price"`
	SalePrice      decimal.NullDecimal `json:"salePrice"`
	IsOnSale       bool                `json:"isOnSale"`
	EffectivePrice decimal.Decimal     `json:"effectivePrice"`
	SortOrder      int                 `json:"sortOrder"`
}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// ItemRef 是发往服务端的商品行，只有 id 和数量，不带价格
type ItemRef struct {
	ID        string `json:"id"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// RedeemRequest 对应 /rpc/validate_discount_code
type RedeemRequest struct {
	Code       string          `json:"code"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
	Items      []ItemRef       `json:"items,omitempty"`
}

// RedeemResponse 同时承载成功和拒绝两种响应体
type RedeemResponse struct {
	Success        bool                `json:"success"`
	Error          string              `json:"error"`
	Reason         string              `json:"reason"`
	MinPurchase    decimal.NullDecimal `json:"minPurchase"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	PromotionName  string              `json:"promotionName"`
	RedemptionID   string              `json:"redemptionId"`
}

// CreateOrderRequest 对应 /rpc/create_order。DiscountAmount 和 ExpectedTotal
// 只是客户端看到的金额，服务端会重新计算。
type CreateOrderRequest struct {
	Items           []ItemRef           `json:"items"`
	CustomerName    string              `json:"customerName"`
	CustomerPhone   string              `json:"customerPhone,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	ShippingAddress string              `json:"shippingAddress,omitempty"`
	DiscountCode    string              `json:"discountCode,omitempty"`
	RedemptionID    string              `json:"redemptionId,omitempty"`
	DiscountAmount  decimal.NullDecimal `json:"discountAmount,omitempty"`
	ExpectedTotal   decimal.NullDecimal `json:"expectedTotal,omitempty"`
	IdempotencyKey  string              `json:"idempotencyKey,omitempty"`
}

// CreateOrderResponse 同时承载成功和拒绝两种响应体
type CreateOrderResponse struct {
	Success        bool                `json:"success"`
	Error          string              `json:"error"`
	Reason         string              `json:"reason"`
	ProductID      string              `json:"productId"`
	DiscountReason string              `json:"discountReason"`
	ExpectedTotal  decimal.NullDecimal `json:"expectedTotal"`
	OrderID        string              `json:"orderId"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	Total          decimal.NullDecimal `json:"total"`
	Status         string              `json:"status"`
	Message        string              `json:"message"`
	Replayed       bool                `json:"replayed"`
}
