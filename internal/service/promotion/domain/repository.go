package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository 定义促销、折扣码和兑换记录的持久化接口。
// ctx 携带事务时所有方法都加入该事务。
type Repository interface {
	// FindCodeForUpdate 按规范化后的 code 读取并锁定折扣码行，直到事务结束
	FindCodeForUpdate(ctx context.Context, code string) (*DiscountCode, error)
	FindPromotion(ctx context.Context, id string) (*Promotion, error)
	// ConsumeUse 以单条条件 UPDATE 消耗一次使用次数，已达上限时返回 ErrUsageLimitReached
	ConsumeUse(ctx context.Context, codeID string) error

	CreateRedemption(ctx context.Context, r *Redemption) error
	FindRedemption(ctx context.Context, id string) (*Redemption, error)
	// BindRedemption 把未绑定的兑换记录绑定到订单，已绑定时返回 ErrRedemptionBound
	BindRedemption(ctx context.Context, id, orderID string) error

	CreatePromotion(ctx context.Context, p *Promotion) error
	ListPromotions(ctx context.Context) ([]*Promotion, error)
	CreateCode(ctx context.Context, c *DiscountCode) error
	ListCodes(ctx context.Context) ([]*DiscountCode, error)
}

// Fact 是评估促销条件时可用的事实
type Fact struct {
	Subtotal  decimal.Decimal
	ItemCount int
	Code      string
	Now       time.Time
}

// RuleEngine 评估促销上的条件表达式，由基础设施层的 CEL 适配器实现
type RuleEngine interface {
	Evaluate(condition string, fact Fact) (bool, error)
	// Compile 在后台创建促销时提前检查表达式
	Compile(condition string) error
}
