package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"

	"huerta/internal/service/catalog/domain"
)

// ProductModel 对应数据库中的 products 表
type ProductModel struct {
	ID         string              `gorm:"primaryKey;size:64"`
	Name       string              `gorm:"size:200;not null"`
	CategoryID string              `gorm:"size:64;index"`
	Unit       string              `gorm:"size:32"`
	Price      decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	SalePrice  decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	IsOnSale   bool                `gorm:"not null"`
	Active     bool                `gorm:"not null"`
	SortOrder  int                 `gorm:"not null;default:0;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName 指定 GORM 应该使用的表名
func (ProductModel) TableName() string {
	return string(domain.TableProducts)
}

// CategoryModel 对应数据库中的 categories 表
type CategoryModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:120;not null"`
	SortOrder int    `gorm:"not null;default:0;index"`
}

func (CategoryModel) TableName() string {
	return string(domain.TableCategories)
}

// ToDomainProduct 将数据库模型转换为领域模型
func ToDomainProduct(m *ProductModel) *domain.Product {
	if m == nil {
		return nil
	}
	return &domain.Product{
		ID:         m.ID,
		Name:       m.Name,
		CategoryID: m.CategoryID,
		Unit:       m.Unit,
		Price:      m.Price,
		SalePrice:  m.SalePrice,
		IsOnSale:   m.IsOnSale,
		Active:     m.Active,
		SortOrder:  m.SortOrder,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomainProduct 将领域模型转换为数据库模型
func FromDomainProduct(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Unit:       p.Unit,
		Price:      p.Price,
		SalePrice:  p.SalePrice,
		IsOnSale:   p.IsOnSale,
		Active:     p.Active,
		SortOrder:  p.SortOrder,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func ToDomainCategory(m *CategoryModel) *domain.Category {
	return &domain.Category{ID: m.ID, Name: m.Name, SortOrder: m.SortOrder}
}
