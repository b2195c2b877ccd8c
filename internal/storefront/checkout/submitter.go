package checkout

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"huerta/internal/pkg/logger"
	"huerta/internal/storefront/api"
	"huerta/internal/storefront/cart"
)

const reasonDuplicateInFlight = "duplicate_in_flight"

// Details 是顾客填写的下单信息
type Details struct {
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ShippingAddress string `json:"shippingAddress,omitempty"`
}

// Order 是一次下单尝试的全部输入
type Order struct {
	Lines          []cart.Item
	Details        Details
	Discount       *AppliedDiscount
	ExpectedTotal  decimal.NullDecimal
	IdempotencyKey string
}

// Validate 检查必须在本地拦下的错误
func (o *Order) Validate() error {
	if strings.TrimSpace(o.Details.CustomerName) == "" {
		return &ValidationError{Field: "customerName", Message: "Ingresá tu nombre"}
	}
	if len(o.Lines) == 0 {
		return &ValidationError{Field: "items", Message: "Tu carrito está vacío"}
	}
	return nil
}

func (o *Order) request() *api.CreateOrderRequest {
	items := make([]api.ItemRef, len(o.Lines))
	for i, line := range o.Lines {
		items[i] = api.ItemRef{ID: line.ProductID, VariantID: line.VariantID, Quantity: line.Quantity}
	}
	req := &api.CreateOrderRequest{
		Items:           items,
		CustomerName:    strings.TrimSpace(o.Details.CustomerName),
		CustomerPhone:   strings.TrimSpace(o.Details.CustomerPhone),
		Notes:           strings.TrimSpace(o.Details.Notes),
		ShippingAddress: strings.TrimSpace(o.Details.ShippingAddress),
		ExpectedTotal:   o.ExpectedTotal,
		IdempotencyKey:  o.IdempotencyKey,
	}
	if o.Discount != nil {
		req.DiscountCode = o.Discount.Code
		req.RedemptionID = o.Discount.RedemptionID
		req.DiscountAmount = decimal.NewNullDecimal(o.Discount.Amount)
	}
	return req
}

// Confirmation 是服务端确认的订单，金额全部以服务端为准
type Confirmation struct {
	OrderID        string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Status         string
	Message        string
	Replayed       bool
}

// Submitter 发送下单请求，同一时间只允许一个请求在途。
type Submitter struct {
	backend  Backend
	inFlight atomic.Bool
}

func NewSubmitter(backend Backend) *Submitter {
	return &Submitter{backend: backend}
}

// Submit 只发送商品 id、规格和数量，响应体中 success 为 true 才算成功。
func (s *Submitter) Submit(ctx context.Context, o *Order) (*Confirmation, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer s.inFlight.Store(false)

	log := logger.Ctx(ctx)
	resp, err := s.backend.CreateOrder(ctx, o.request())
	if err != nil {
		log.Warn().Err(err).Str("idempotency_key", o.IdempotencyKey).Msg("create order failed")
		return nil, transient("create order", err)
	}
	if resp.Success {
		log.Info().Str("order_id", resp.OrderID).Bool("replayed", resp.Replayed).Msg("order confirmed")
		return &Confirmation{
			OrderID:        resp.OrderID,
			Subtotal:       resp.Subtotal,
			DiscountAmount: resp.DiscountAmount,
			Total:          resp.Total.Decimal,
			Status:         resp.Status,
			Message:        resp.Message,
			Replayed:       resp.Replayed,
		}, nil
	}
	// 同一个幂等键的上一次请求仍在处理，稍后用同一个键重试会拿到那次的结果
	if resp.Reason == reasonDuplicateInFlight {
		return nil, transient("create order", &RejectionError{Reason: resp.Reason, Message: resp.Error})
	}
	rej := &RejectionError{
		Reason:         resp.Reason,
		Message:        resp.Error,
		ProductID:      resp.ProductID,
		DiscountReason: resp.DiscountReason,
		ExpectedTotal:  resp.ExpectedTotal,
		Total:          resp.Total,
	}
	if rej.Reason == "" {
		rej.Reason = "rejected"
	}
	if rej.Message == "" {
		rej.Message = "No pudimos registrar tu pedido"
	}
	return nil, rej
}
