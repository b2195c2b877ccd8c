// internal/service/catalog/domain/product.go
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidReorder   = errors.New("invalid reorder request")
	ErrSortTargetAbsent = errors.New("reorder references a row that does not exist")
)

// Product 是商品目录中的一件商品，价格以服务端为准。
type Product struct {
	ID         string
	Name       string
	CategoryID string
	Unit       string // e.g. "kg", "manojo", "unidad"
	Price      decimal.Decimal
	SalePrice  decimal.NullDecimal
	IsOnSale   bool
	Active     bool
	SortOrder  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectivePrice 在促销中且设置了促销价时返回促销价，否则返回原价。
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.IsOnSale && p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// Validate 校验后台提交的商品数据。
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(ErrInvalidProduct, "id and name are required")
	}
	if p.Price.IsNegative() {
		return errors.Wrap(ErrInvalidProduct, "price must not be negative")
	}
	if p.SalePrice.Valid && p.SalePrice.Decimal.IsNegative() {
		return errors.Wrap(ErrInvalidProduct, "sale price must not be negative")
	}
	if p.IsOnSale && !p.SalePrice.Valid {
		return errors.Wrap(ErrInvalidProduct, "a product on sale needs a sale price")
	}
	if p.SortOrder < 0 {
		return errors.Wrap(ErrInvalidProduct, "sort order must not be negative")
	}
	return nil
}

// Category 是商品分类。
type Category struct {
	ID        string
	Name      string
	SortOrder int
}

// SortTable 是允许后台批量排序的表。
type SortTable string

const (
	TableProducts   SortTable = "products"
	TableCategories SortTable = "categories"
)

// SortEntry 是一次排序中的一行。
type SortEntry struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// ValidateReorder 在进入事务前校验整批数据，任何一行不合法整批拒绝。
func ValidateReorder(table SortTable, entries []SortEntry) error {
	if table != TableProducts && table != TableCategories {
		return errors.Wrapf(ErrInvalidReorder, "unknown table %q", table)
	}
	if len(entries) == 0 {
		return errors.Wrap(ErrInvalidReorder, "no items")
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return errors.Wrap(ErrInvalidReorder, "item id is required")
		}
		if e.SortOrder < 0 {
			return errors.Wrapf(ErrInvalidReorder, "negative sortOrder for %s", e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return errors.Wrapf(ErrInvalidReorder, "duplicate id %s", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// Repository 定义了目录的持久化接口，由基础设施层实现。
// 写方法在 ctx 携带事务时加入该事务。
type Repository interface {
	FindProduct(ctx context.Context, id string) (*Product, error)
	// FindProducts 返回存在的商品，缺失的 id 不报错，由调用方判断。
	FindProducts(ctx context.Context, ids []string) (map[string]*Product, error)
	ListProducts(ctx context.Context, includeInactive bool) ([]*Product, error)
	SaveProduct(ctx context.Context, p *Product) error

	ListCategories(ctx context.Context) ([]*Category, error)
	SaveCategory(ctx context.Context, c *Category) error

	CountExisting(ctx context.Context, table SortTable, ids []string) (int, error)
	UpdateSortOrder(ctx context.Context, table SortTable, id string, sortOrder int) error
}
