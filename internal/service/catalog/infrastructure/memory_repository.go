package infrastructure

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"huerta/internal/service/catalog/domain"
)

// MemoryRepository 是单机开发与测试使用的内存实现，配合 storage.MemoryTxManager 实现回滚。
type MemoryRepository struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	categories map[string]domain.Category
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products:   make(map[string]domain.Product),
		categories: make(map[string]domain.Category),
	}
}

type catalogSnapshot struct {
	products   map[string]domain.Product
	categories map[string]domain.Category
}

func (r *MemoryRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return catalogSnapshot{products: maps.Clone(r.products), categories: maps.Clone(r.categories)}
}

func (r *MemoryRepository) Restore(state any) {
	s := state.(catalogSnapshot)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products, r.categories = s.products, s.categories
}

func (r *MemoryRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) FindProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListProducts(ctx context.Context, includeInactive bool) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if !includeInactive && !p.Active {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepository) SaveProduct(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	stored := *p
	if existing, ok := r.products[p.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.products[p.ID] = stored
	return nil
}

func (r *MemoryRepository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Category, 0, len(r.categories))
	for _, c := range r.categories {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepository) SaveCategory(ctx context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.ID] = *c
	return nil
}

func (r *MemoryRepository) CountExisting(ctx context.Context, table domain.SortTable, ids []string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, id := range ids {
		switch table {
		case domain.TableProducts:
			if _, ok := r.products[id]; ok {
				n++
			}
		case domain.TableCategories:
			if _, ok := r.categories[id]; ok {
				n++
			}
		}
	}
	return n, nil
}

func (r *MemoryRepository) UpdateSortOrder(ctx context.Context, table domain.SortTable, id string, sortOrder int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch table {
	case domain.TableProducts:
		p, ok := r.products[id]
		if !ok {
			return domain.ErrSortTargetAbsent
		}
		p.SortOrder = sortOrder
		r.products[id] = p
	case domain.TableCategories:
		c, ok := r.categories[id]
		if !ok {
			return domain.ErrSortTargetAbsent
		}
		c.SortOrder = sortOrder
		r.categories[id] = c
	}
	return nil
}
