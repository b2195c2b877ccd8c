package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 兑换失败的业务原因，按资格校验的先后顺序排列
var (
	ErrInvalidCode         = errors.New("invalid discount code format")
	ErrCodeNotFound        = errors.New("discount code not found")
	ErrCodeInactive        = errors.New("discount code is inactive")
	ErrUsageLimitReached   = errors.New("discount code usage limit reached")
	ErrPromotionInactive   = errors.New("promotion is inactive")
	ErrPromotionNotStarted = errors.New("promotion has not started yet")
	ErrPromotionExpired    = errors.New("promotion has expired")
	ErrMinimumPurchase     = errors.New("minimum purchase not met")
	ErrConditionNotMet     = errors.New("promotion condition not met")
	ErrInvalidOrderTotal   = errors.New("order total must not be negative")
	ErrPromotionNotFound   = errors.New("promotion not found")
	ErrInvalidPromotion    = errors.New("invalid promotion")
	ErrDuplicateCode       = errors.New("discount code already exists")
	ErrRedemptionNotFound  = errors.New("redemption not found")
	ErrRedemptionMismatch  = errors.New("redemption does not belong to this discount code")
	ErrRedemptionBound     = errors.New("redemption is already bound to an order")
)

// MinimumPurchaseError 携带未达到的最低消费金额，前端据此提示用户。
type MinimumPurchaseError struct {
	Minimum decimal.Decimal
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf("%s: minimum is %s", ErrMinimumPurchase, e.Minimum.StringFixed(2))
}

func (e *MinimumPurchaseError) Unwrap() error { return ErrMinimumPurchase }

// Reason 是失败原因在接口上的机器可读编码
type Reason string

const (
	ReasonInvalidCode        Reason = "invalid_code"
	ReasonCodeNotFound       Reason = "code_not_found"
	ReasonCodeInactive       Reason = "code_inactive"
	ReasonUsageLimitReached  Reason = "usage_limit_reached"
	ReasonPromotionInactive  Reason = "promotion_inactive"
	ReasonNotStarted         Reason = "promotion_not_started"
	ReasonExpired            Reason = "promotion_expired"
	ReasonMinimumPurchase    Reason = "minimum_purchase_not_met"
	ReasonConditionNotMet    Reason = "condition_not_met"
	ReasonValidation         Reason = "validation_error"
	ReasonRedemptionMismatch Reason = "redemption_invalid"
)

var reasons = []struct {
	err     error
	reason  Reason
	message string
}{
	{ErrInvalidCode, ReasonInvalidCode, "El código de descuento no es válido"},
	{ErrCodeNotFound, ReasonCodeNotFound, "El código de descuento no existe"},
	{ErrCodeInactive, ReasonCodeInactive, "El código de descuento no está activo"},
	{ErrUsageLimitReached, ReasonUsageLimitReached, "El código de descuento alcanzó su límite de usos"},
	{ErrPromotionInactive, ReasonPromotionInactive, "La promoción no está activa"},
	{ErrPromotionNotStarted, ReasonNotStarted, "La promoción todavía no comenzó"},
	{ErrPromotionExpired, ReasonExpired, "El código de descuento ha expirado"},
	{ErrMinimumPurchase, ReasonMinimumPurchase, "No se alcanzó la compra mínima"},
	{ErrConditionNotMet, ReasonConditionNotMet, "El pedido no cumple las condiciones de la promoción"},
	{ErrInvalidOrderTotal, ReasonValidation, "El total del pedido no es válido"},
	{ErrRedemptionNotFound, ReasonRedemptionMismatch, "La aplicación del descuento no existe"},
	{ErrRedemptionMismatch, ReasonRedemptionMismatch, "La aplicación del descuento no corresponde al código"},
	{ErrRedemptionBound, ReasonRedemptionMismatch, "El descuento ya fue usado en otro pedido"},
}

// ReasonOf 把业务错误映射为接口原因编码和面向用户的提示；非业务错误返回 ok=false。
func ReasonOf(err error) (reason Reason, message string, ok bool) {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			message = r.message
			var minErr *MinimumPurchaseError
			if errors.As(err, &minErr) {
				message = fmt.Sprintf("%s (%s)", r.message, minErr.Minimum.StringFixed(2))
			}
			return r.reason, message, true
		}
	}
	return "", "", false
}

// IsBusinessRejection 判断 err 是否是可以原样展示给用户的业务拒绝
func IsBusinessRejection(err error) bool {
	_, _, ok := ReasonOf(err)
	return ok
}
