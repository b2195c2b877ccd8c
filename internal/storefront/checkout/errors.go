package checkout

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"huerta/internal/storefront/cart"
)

var (
	// ErrTransient 表示请求没有得到明确的结果，购物车和折扣保持原样，可以安全重试。
	ErrTransient = errors.New("checkout: transient failure")
	// ErrSubmissionInProgress 表示上一次下单请求还没有返回
	ErrSubmissionInProgress = errors.New("checkout: submission in progress")
)

// ValidationError 在发出任何网络请求之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RejectionError 是服务端的业务拒绝，Message 原样展示给顾客。
type RejectionError struct {
	Reason  string
	Message string

	ProductID      string
	DiscountReason string
	MinPurchase    decimal.NullDecimal
	ExpectedTotal  decimal.NullDecimal
	Total          decimal.NullDecimal
}

func (e *RejectionError) Error() string { return e.Message }

func transient(op string, err error) error {
	return errors.Wrapf(ErrTransient, "%s: %v", op, err)
}

// UserMessage 返回可以直接展示给顾客的提示
func UserMessage(err error) string {
	var (
		validation *ValidationError
		rejection  *RejectionError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSubmissionInProgress):
		return "Tu pedido se está enviando, esperá un momento"
	case errors.Is(err, ErrTransient):
		return "No pudimos comunicarnos con la tienda, intentá de nuevo"
	case errors.Is(err, cart.ErrQuantityLimit):
		return fmt.Sprintf("Podés llevar hasta %d unidades de cada producto", cart.MaxQuantity)
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &rejection):
		return rejection.Message
	default:
		return "Algo salió mal, intentá de nuevo"
	}
}
