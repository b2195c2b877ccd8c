package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{1,64}$`)

// NormalizeCode 去掉首尾空白并转为大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCodeFormat 校验规范化后的折扣码格式
func ValidateCodeFormat(code string) error {
	if !codePattern.MatchString(code) {
		return errors.Wrapf(ErrInvalidCode, "%q", code)
	}
	return nil
}

// DiscountCode 是用户输入的折扣码，指向一个促销。
// CurrentUses 只增不减，且在 MaxUses 非空时不超过 MaxUses。
type DiscountCode struct {
	ID          string
	Code        string
	PromotionID string
	MaxUses     *int // nil 表示不限次数
	CurrentUses int
	Active      bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
}

func (c *DiscountCode) Validate() error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.PromotionID) == "" {
		return errors.Wrap(ErrInvalidPromotion, "code id and promotionId are required")
	}
	if err := ValidateCodeFormat(c.Code); err != nil {
		return err
	}
	if c.MaxUses != nil && *c.MaxUses < 0 {
		return errors.Wrap(ErrInvalidPromotion, "maxUses must not be negative")
	}
	return nil
}

// Exhausted 判断使用次数是否已达上限
func (c *DiscountCode) Exhausted() bool {
	return c.MaxUses != nil && c.CurrentUses >= *c.MaxUses
}

// Redemption 记录一次成功的兑换，最多绑定到一个订单。
type Redemption struct {
	ID             string
	CodeID         string
	Code           string
	PromotionID    string
	OrderTotal     decimal.Decimal
	DiscountAmount decimal.Decimal
	CreatedAt      time.Time
	OrderID        *string
}

// Eligibility 是资格校验的输入
type Eligibility struct {
	Code       *DiscountCode
	Promotion  *Promotion
	OrderTotal decimal.Decimal
	Now        time.Time
	// SkipUsageLimit 用于结算已经消耗过次数的兑换记录
	SkipUsageLimit bool
}

// Check 按固定顺序校验资格，返回第一个不满足的原因：
// 码状态、使用次数、促销状态、未开始、已过期、最低消费。
// 促销条件（CEL）由应用层在此之后评估。
func (e Eligibility) Check() error {
	if !e.Code.Active {
		return ErrCodeInactive
	}
	if !e.SkipUsageLimit && e.Code.Exhausted() {
		return ErrUsageLimitReached
	}
	if !e.Promotion.Active {
		return ErrPromotionInactive
	}
	if e.Code.StartsAt != nil && e.Now.Before(*e.Code.StartsAt) {
		return ErrPromotionNotStarted
	}
	if err := checkWindow(e.Promotion.StartsAt, nil, e.Now); err != nil {
		return err
	}
	if e.Code.EndsAt != nil && e.Now.After(*e.Code.EndsAt) {
		return ErrPromotionExpired
	}
	if err := checkWindow(nil, e.Promotion.EndsAt, e.Now); err != nil {
		return err
	}
	return e.Promotion.CheckMinimum(e.OrderTotal)
}
