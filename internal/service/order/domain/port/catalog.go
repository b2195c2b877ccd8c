package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product 是下单时需要的商品快照，UnitPrice 为当前成交单价
type Product struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Active    bool
}

// Catalog 是商品目录的出站端口。
type Catalog interface {
	// Products 返回 ids 中存在的商品，不存在的 id 不在结果中。
	// 在下单事务内调用，读到的是提交时刻的价格。
	Products(ctx context.Context, ids []string) (map[string]Product, error)
}
