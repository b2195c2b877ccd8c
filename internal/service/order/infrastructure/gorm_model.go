package infrastructure

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID              string          `gorm:"primaryKey;size:36"`
	CustomerName    string          `gorm:"size:200;not null"`
	CustomerPhone   string          `gorm:"size:64"`
	Notes           string          `gorm:"type:text"`
	ShippingAddress string          `gorm:"type:text"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountCode    string          `gorm:"size:64"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	RedemptionID    sql.NullString  `gorm:"size:36"`
	IdempotencyKey  sql.NullString  `gorm:"size:128;uniqueIndex"` // NULL 不参与唯一约束
	Status          string          `gorm:"size:32;index;not null"`
	CreatedAt       time.Time       `gorm:"index"`
	UpdatedAt       time.Time

	Lines []OrderLineModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderLineModel 对应 order_lines 表，Position 保持提交时的行顺序
type OrderLineModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	OrderID   string          `gorm:"size:36;index;not null"`
	Position  int             `gorm:"not null"`
	ProductID string          `gorm:"size:64;not null"`
	VariantID string          `gorm:"size:64"`
	Name      string          `gorm:"size:200;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (OrderLineModel) TableName() string {
	return "order_lines"
}
