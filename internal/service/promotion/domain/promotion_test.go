package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDiscountFor(t *testing.T) {
	tests := []struct {
		name  string
		promo Promotion
		total string
		items []LineItem
		want  string
	}{
		{name: "percentage", promo: Promotion{Type: DiscountTypePercentage, Value: d("10")}, total: "1600", want: "160"},
		{name: "percentage rounds half away from zero", promo: Promotion{Type: DiscountTypePercentage, Value: d("15")}, total: "10.10", want: "1.52"},
		{name: "fixed amount", promo: Promotion{Type: DiscountTypeFixedAmount, Value: d("300")}, total: "1600", want: "300"},
		{name: "fixed amount clamped to total", promo: Promotion{Type: DiscountTypeFixedAmount, Value: d("300")}, total: "250", want: "250"},
		{name: "percentage above 100 clamped", promo: Promotion{Type: DiscountTypePercentage, Value: d("150")}, total: "80", want: "80"},
		{name: "zero total", promo: Promotion{Type: DiscountTypeFixedAmount, Value: d("50")}, total: "0", want: "0"},
		{
			name:  "buy 2 get 1",
			promo: Promotion{Type: DiscountTypeBuyXGetY, BuyQuantity: 2, GetQuantity: 1},
			total: "4000",
			items: []LineItem{{ProductID: "a", Quantity: 7, UnitPrice: d("500")}, {ProductID: "b", Quantity: 1, UnitPrice: d("500")}},
			want:  "1000",
		},
		{
			name:  "buy x get y respects scope",
			promo: Promotion{Type: DiscountTypeBuyXGetY, BuyQuantity: 1, GetQuantity: 1, ProductIDs: []string{"b"}},
			total: "2000",
			items: []LineItem{{ProductID: "a", Quantity: 2, UnitPrice: d("500")}, {ProductID: "b", Quantity: 2, UnitPrice: d("400")}},
			want:  "400",
		},
		{name: "buy x get y without items", promo: Promotion{Type: DiscountTypeBuyXGetY, BuyQuantity: 1, GetQuantity: 1}, total: "900", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.promo.DiscountFor(d(tt.total), tt.items)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
			assert.False(t, got.IsNegative())
			assert.True(t, got.LessThanOrEqual(d(tt.total)))
		})
	}
}

func TestEligibility_Order(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	one := 1

	base := func() Eligibility {
		return Eligibility{
			Code:       &DiscountCode{Code: "TEST10", Active: true},
			Promotion:  &Promotion{Active: true, Type: DiscountTypePercentage, Value: d("10")},
			OrderTotal: d("1600"),
			Now:        now,
		}
	}

	tests := []struct {
		name   string
		mutate func(e *Eligibility)
		want   error
	}{
		{name: "eligible", mutate: func(e *Eligibility) {}},
		{name: "code inactive wins over exhausted", mutate: func(e *Eligibility) {
			e.Code.Active = false
			e.Code.MaxUses, e.Code.CurrentUses = &one, 1
		}, want: ErrCodeInactive},
		{name: "exhausted", mutate: func(e *Eligibility) { e.Code.MaxUses, e.Code.CurrentUses = &one, 1 }, want: ErrUsageLimitReached},
		{name: "exhausted but settling", mutate: func(e *Eligibility) {
			e.Code.MaxUses, e.Code.CurrentUses = &one, 1
			e.SkipUsageLimit = true
		}},
		{name: "promotion inactive", mutate: func(e *Eligibility) { e.Promotion.Active = false }, want: ErrPromotionInactive},
		{name: "code not started", mutate: func(e *Eligibility) { e.Code.StartsAt = &future }, want: ErrPromotionNotStarted},
		{name: "promotion not started", mutate: func(e *Eligibility) { e.Promotion.StartsAt = &future }, want: ErrPromotionNotStarted},
		{name: "not started wins over expired", mutate: func(e *Eligibility) {
			e.Promotion.StartsAt = &future
			e.Code.EndsAt = &past
		}, want: ErrPromotionNotStarted},
		{name: "code expired", mutate: func(e *Eligibility) { e.Code.EndsAt = &past }, want: ErrPromotionExpired},
		{name: "promotion expired", mutate: func(e *Eligibility) { e.Promotion.EndsAt = &past }, want: ErrPromotionExpired},
		{name: "minimum purchase", mutate: func(e *Eligibility) {
			e.Promotion.MinPurchase = decimal.NewNullDecimal(d("2000"))
		}, want: ErrMinimumPurchase},
		{name: "minimum purchase exactly met", mutate: func(e *Eligibility) {
			e.Promotion.MinPurchase = decimal.NewNullDecimal(d("1600"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base()
			tt.mutate(&e)
			err := e.Check()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReasonOf(t *testing.T) {
	reason, msg, ok := ReasonOf(&MinimumPurchaseError{Minimum: d("2000")})
	assert.True(t, ok)
	assert.Equal(t, ReasonMinimumPurchase, reason)
	assert.Contains(t, msg, "2000.00")

	reason, msg, ok = ReasonOf(ErrPromotionExpired)
	assert.True(t, ok)
	assert.Equal(t, ReasonExpired, reason)
	assert.Contains(t, msg, "expir")

	_, _, ok = ReasonOf(assert.AnError)
	assert.False(t, ok)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "TEST10", NormalizeCode("  test10 "))
	assert.NoError(t, ValidateCodeFormat("SUMMER_2026-A"))
	assert.ErrorIs(t, ValidateCodeFormat(""), ErrInvalidCode)
	assert.ErrorIs(t, ValidateCodeFormat("NO SPACES"), ErrInvalidCode)
	assert.ErrorIs(t, ValidateCodeFormat("DROP;TABLE"), ErrInvalidCode)
}
