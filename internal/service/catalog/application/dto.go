package application

import (
	"github.com/shopspring/decimal"

	"huerta/internal/pkg/money"
	"huerta/internal/service/catalog/domain"
)

// UpsertProductRequest 是后台新建或更新商品的请求体
type UpsertProductRequest struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	CategoryID string              `json:"categoryId"`
	Unit       string              `json:"unit"`
	Price      decimal.Decimal     `json:"price"`
	SalePrice  decimal.NullDecimal `json:"salePrice"`
	IsOnSale   bool                `json:"isOnSale"`
	Active     *bool               `json:"active"`
	SortOrder  int                 `json:"sortOrder"`
}

func (r *UpsertProductRequest) ToDomain() *domain.Product {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &domain.Product{
		ID:         r.ID,
		Name:       r.Name,
		CategoryID: r.CategoryID,
		Unit:       r.Unit,
		Price:      r.Price,
		SalePrice:  r.SalePrice,
		IsOnSale:   r.IsOnSale,
		Active:     active,
		SortOrder:  r.SortOrder,
	}
}

type UpsertCategoryRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// ReorderRequest 是批量排序 RPC 的请求体
type ReorderRequest struct {
	Table string             `json:"table"`
	Items []domain.SortEntry `json:"items"`
}

// ProductView 是对外展示的商品，effectivePrice 仅用于展示，下单时以服务端重新计算为准
type ProductView struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	CategoryID     string              `json:"categoryId"`
	Unit           string              `json:"unit"`
	Price          decimal.Decimal     `json:"price"`
	SalePrice      decimal.NullDecimal `json:"salePrice"`
	IsOnSale       bool                `json:"isOnSale"`
	EffectivePrice decimal.Decimal     `json:"effectivePrice"`
	Active         bool                `json:"active"`
	SortOrder      int                 `json:"sortOrder"`
}

func ToProductView(p *domain.Product) ProductView {
	return ProductView{
		ID:             p.ID,
		Name:           p.Name,
		CategoryID:     p.CategoryID,
		Unit:           p.Unit,
		Price:          money.Round(p.Price),
		SalePrice:      p.SalePrice,
		IsOnSale:       p.IsOnSale,
		EffectivePrice: money.Round(p.EffectivePrice()),
		Active:         p.Active,
		SortOrder:      p.SortOrder,
	}
}

type CategoryView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}
