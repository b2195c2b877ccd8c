package infrastructure

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"huerta/internal/pkg/storage"
	"huerta/internal/service/order/domain"
)

// MemoryRepository 是订单仓储的内存实现，幂等键唯一约束与数据库一致
type MemoryRepository struct {
	mu       sync.RWMutex
	orders   map[string]domain.Order
	keyIndex map[string]string // idempotency key -> order id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:   make(map[string]domain.Order),
		keyIndex: make(map[string]string),
	}
}

type orderSnapshot struct {
	orders   map[string]domain.Order
	keyIndex map[string]string
}

func (r *MemoryRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return orderSnapshot{orders: maps.Clone(r.orders), keyIndex: maps.Clone(r.keyIndex)}
}

func (r *MemoryRepository) Restore(state any) {
	s := state.(orderSnapshot)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders, r.keyIndex = s.orders, s.keyIndex
}

func cloneOrder(o domain.Order) *domain.Order {
	o.Lines = slices.Clone(o.Lines)
	return &o
}

func (r *MemoryRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return errors.Wrapf(storage.ErrDuplicate, "order %s", order.ID)
	}
	if order.IdempotencyKey != "" {
		if _, ok := r.keyIndex[order.IdempotencyKey]; ok {
			return errors.Wrap(storage.ErrDuplicate, "idempotency key")
		}
		r.keyIndex[order.IdempotencyKey] = order.ID
	}
	r.orders[order.ID] = *cloneOrder(*order)
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	r.mu.RLock()
	id, ok := r.keyIndex[key]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orders := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return errors.Wrapf(domain.ErrInvalidTransition, "order %s is no longer %s", id, from)
	}
	o.Status = to
	o.UpdatedAt = at
	r.orders[id] = o
	return nil
}
