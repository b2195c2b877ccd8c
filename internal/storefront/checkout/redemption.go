package checkout

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"huerta/internal/pkg/logger"
	"huerta/internal/storefront/api"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{1,64}$`)

// Backend 是结账流程依赖的两个后端 RPC，api.Client 实现了它
type Backend interface {
	ValidateDiscountCode(ctx context.Context, req *api.RedeemRequest) (*api.RedeemResponse, error)
	CreateOrder(ctx context.Context, req *api.CreateOrderRequest) (*api.CreateOrderResponse, error)
}

// NormalizeCode 去掉首尾空白并转为大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AppliedDiscount 是服务端确认过的折扣，金额只来自服务端响应。
type AppliedDiscount struct {
	Code          string          `json:"code"`
	Amount        decimal.Decimal `json:"amount"`
	PromotionName string          `json:"promotionName"`
	RedemptionID  string          `json:"redemptionId,omitempty"`
	// OrderTotal 是兑换时提交的小计
	OrderTotal decimal.Decimal `json:"orderTotal"`
}

// RedemptionClient 调用兑换 RPC。每次 Apply 都是一次兑换尝试，
// 只能由顾客的明确操作触发，失败后不会自动重试。
type RedemptionClient struct {
	backend Backend
}

func NewRedemptionClient(backend Backend) *RedemptionClient {
	return &RedemptionClient{backend: backend}
}

// Apply 先做本地校验，再调用一次兑换 RPC。
func (c *RedemptionClient) Apply(ctx context.Context, code string, orderTotal decimal.Decimal, items []api.ItemRef) (*AppliedDiscount, error) {
	code = NormalizeCode(code)
	switch {
	case code == "":
		return nil, &ValidationError{Field: "code", Message: "Ingresá un código de descuento"}
	case !codePattern.MatchString(code):
		return nil, &ValidationError{Field: "code", Message: "El código tiene caracteres no válidos"}
	case orderTotal.IsNegative():
		return nil, &ValidationError{Field: "orderTotal", Message: "El total del pedido no es válido"}
	}

	resp, err := c.backend.ValidateDiscountCode(ctx, &api.RedeemRequest{Code: code, OrderTotal: orderTotal, Items: items})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("validate discount code failed")
		return nil, transient("validate discount code", err)
	}
	if !resp.Success {
		rej := &RejectionError{Reason: resp.Reason, Message: resp.Error, MinPurchase: resp.MinPurchase}
		if rej.Reason == "" {
			rej.Reason = "rejected"
		}
		if rej.Message == "" {
			rej.Message = "El código no es válido"
		}
		return nil, rej
	}
	return &AppliedDiscount{
		Code:          code,
		Amount:        resp.DiscountAmount,
		PromotionName: resp.PromotionName,
		RedemptionID:  resp.RedemptionID,
		OrderTotal:    orderTotal,
	}, nil
}
