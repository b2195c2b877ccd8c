// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ListFilter 是后台订单列表的过滤条件，零值表示全部
type ListFilter struct {
	Status Status
	Limit  int
}

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 写入新订单；幂等键重复时返回 storage.ErrDuplicate 或驱动的唯一键错误
	Create(ctx context.Context, order *Order) error

	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByIdempotencyKey 查找曾用该幂等键提交成功的订单
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)

	// List 按创建时间倒序返回订单
	List(ctx context.Context, filter ListFilter) ([]*Order, error)

	// UpdateStatus 仅当订单当前状态仍为 from 时更新为 to
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
}
