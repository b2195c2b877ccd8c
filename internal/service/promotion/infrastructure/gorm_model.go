package infrastructure

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// PromotionModel 对应数据库中的 promotions 表
type PromotionModel struct {
	ID          string              `gorm:"primaryKey;size:64"`
	Name        string              `gorm:"size:200;not null"`
	Type        string              `gorm:"size:32;not null"`
	Value       decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	MinPurchase decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	BuyQuantity int
	GetQuantity int
	ScopeValue  string `gorm:"type:text"` // 逗号分隔的商品 id
	Condition   string `gorm:"column:condition_expr;type:text"`
	Active      bool   `gorm:"not null"`
	StartsAt    sql.NullTime
	EndsAt      sql.NullTime
	CreatedAt   time.Time
}

// TableName 指定 GORM 应该使用的表名
func (PromotionModel) TableName() string {
	return "promotions"
}

// DiscountCodeModel 对应数据库中的 discount_codes 表
type DiscountCodeModel struct {
	ID          string        `gorm:"primaryKey;size:36"`
	Code        string        `gorm:"size:64;uniqueIndex;not null"`
	PromotionID string        `gorm:"size:64;index;not null"`
	MaxUses     sql.NullInt64 // NULL 表示不限次数
	CurrentUses int           `gorm:"not null;default:0"`
	Active      bool          `gorm:"not null"`
	StartsAt    sql.NullTime
	EndsAt      sql.NullTime
	CreatedAt   time.Time
}

func (DiscountCodeModel) TableName() string {
	return "discount_codes"
}

// RedemptionModel 对应 discount_redemptions 表，一次成功兑换一行
type RedemptionModel struct {
	ID             string          `gorm:"primaryKey;size:36"`
	CodeID         string          `gorm:"size:36;index;not null"`
	Code           string          `gorm:"size:64;not null"`
	PromotionID    string          `gorm:"size:64;not null"`
	OrderTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OrderID        sql.NullString  `gorm:"size:36;index"`
	CreatedAt      time.Time
}

func (RedemptionModel) TableName() string {
	return "discount_redemptions"
}
