package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("invalid order request")
	ErrItemUnavailable   = errors.New("item unavailable")
	ErrPriceChanged      = errors.New("price changed")
	ErrDiscountInvalid   = errors.New("discount invalid")
	ErrDuplicateInFlight = errors.New("order with this idempotency key is in flight")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Reason 是下单失败时返回给客户端的机器可读原因
type Reason string

const (
	ReasonValidation        Reason = "validation_error"
	ReasonItemUnavailable   Reason = "item_unavailable"
	ReasonPriceChanged      Reason = "price_changed"
	ReasonDiscountInvalid   Reason = "discount_invalid"
	ReasonDuplicateInFlight Reason = "duplicate_in_flight"
)

// ValidationError 携带面向顾客的提示
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "validation: " + e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ItemUnavailableError 指出哪件商品已下架或不存在
type ItemUnavailableError struct {
	ProductID string
}

func (e *ItemUnavailableError) Error() string { return "item unavailable: " + e.ProductID }
func (e *ItemUnavailableError) Unwrap() error { return ErrItemUnavailable }

// PriceChangedError 同时携带客户端预期的总价和服务端算出的总价
type PriceChangedError struct {
	ExpectedTotal decimal.Decimal
	Total         decimal.Decimal
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("price changed: expected %s, got %s", e.ExpectedTotal, e.Total)
}
func (e *PriceChangedError) Unwrap() error { return ErrPriceChanged }

// DiscountError 包装折扣结算被拒绝的底层原因，Reason 取折扣服务的原因码
type DiscountError struct {
	Reason  string
	Message string
}

func (e *DiscountError) Error() string { return "discount invalid: " + e.Reason }
func (e *DiscountError) Unwrap() error { return ErrDiscountInvalid }

// ReasonOf 把业务错误翻译成原因码和顾客可读的提示，非业务错误返回 ok=false
func ReasonOf(err error) (reason Reason, message string, ok bool) {
	var (
		valErr  *ValidationError
		itemErr *ItemUnavailableError
		discErr *DiscountError
	)
	switch {
	case errors.As(err, &valErr):
		return ReasonValidation, valErr.Message, true
	case errors.As(err, &itemErr):
		return ReasonItemUnavailable, fmt.Sprintf("El producto %s ya no está disponible", itemErr.ProductID), true
	case errors.Is(err, ErrPriceChanged):
		return ReasonPriceChanged, "Los precios cambiaron. Revisá el total antes de confirmar", true
	case errors.As(err, &discErr):
		return ReasonDiscountInvalid, discErr.Message, true
	case errors.Is(err, ErrDuplicateInFlight):
		return ReasonDuplicateInFlight, "Tu pedido ya se está procesando", true
	}
	return "", "", false
}
