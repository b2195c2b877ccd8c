package adapter

import (
	"context"

	catalogdomain "huerta/internal/service/catalog/domain"
	"huerta/internal/service/order/domain/port"
)

// ProductSource 是 catalog 应用服务提供的查询能力
type ProductSource interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]*catalogdomain.Product, error)
}

// CatalogAdapter 实现了 port.Catalog 接口，进程内直接调用商品目录服务。
type CatalogAdapter struct {
	source ProductSource
}

func NewCatalogAdapter(source ProductSource) *CatalogAdapter {
	return &CatalogAdapter{source: source}
}

func (a *CatalogAdapter) Products(ctx context.Context, ids []string) (map[string]port.Product, error) {
	products, err := a.source.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]port.Product, len(products))
	for id, p := range products {
		out[id] = port.Product{
			ID:        p.ID,
			Name:      p.Name,
			UnitPrice: p.EffectivePrice(),
			Active:    p.Active,
		}
	}
	return out, nil
}
