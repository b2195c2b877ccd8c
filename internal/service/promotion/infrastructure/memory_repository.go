package infrastructure

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"huerta/internal/service/promotion/domain"
)

// MemoryRepository 是内存实现。行锁由 storage.MemoryTxManager 的全局锁代替，
// ConsumeUse 仍然在自己的锁内完成比较和自增。
type MemoryRepository struct {
	mu          sync.RWMutex
	promotions  map[string]domain.Promotion
	codes       map[string]domain.DiscountCode // key: code id
	codeIndex   map[string]string              // code -> code id
	redemptions map[string]domain.Redemption
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		promotions:  make(map[string]domain.Promotion),
		codes:       make(map[string]domain.DiscountCode),
		codeIndex:   make(map[string]string),
		redemptions: make(map[string]domain.Redemption),
	}
}

type promotionSnapshot struct {
	promotions  map[string]domain.Promotion
	codes       map[string]domain.DiscountCode
	codeIndex   map[string]string
	redemptions map[string]domain.Redemption
}

func (r *MemoryRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return promotionSnapshot{
		promotions:  maps.Clone(r.promotions),
		codes:       maps.Clone(r.codes),
		codeIndex:   maps.Clone(r.codeIndex),
		redemptions: maps.Clone(r.redemptions),
	}
}

func (r *MemoryRepository) Restore(state any) {
	s := state.(promotionSnapshot)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promotions, r.codes, r.codeIndex, r.redemptions = s.promotions, s.codes, s.codeIndex, s.redemptions
}

func (r *MemoryRepository) FindCodeForUpdate(ctx context.Context, code string) (*domain.DiscountCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.codeIndex[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	c := r.codes[id]
	return &c, nil
}

func (r *MemoryRepository) FindPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.promotions[id]
	if !ok {
		return nil, domain.ErrPromotionNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ConsumeUse(ctx context.Context, codeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[codeID]
	if !ok {
		return domain.ErrCodeNotFound
	}
	if c.Exhausted() {
		return domain.ErrUsageLimitReached
	}
	c.CurrentUses++
	r.codes[codeID] = c
	return nil
}

func (r *MemoryRepository) CreateRedemption(ctx context.Context, red *domain.Redemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redemptions[red.ID] = *red
	return nil
}

func (r *MemoryRepository) FindRedemption(ctx context.Context, id string) (*domain.Redemption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	red, ok := r.redemptions[id]
	if !ok {
		return nil, domain.ErrRedemptionNotFound
	}
	return &red, nil
}

func (r *MemoryRepository) BindRedemption(ctx context.Context, id, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	red, ok := r.redemptions[id]
	if !ok {
		return domain.ErrRedemptionNotFound
	}
	if red.OrderID != nil {
		return domain.ErrRedemptionBound
	}
	red.OrderID = &orderID
	r.redemptions[id] = red
	return nil
}

func (r *MemoryRepository) CreatePromotion(ctx context.Context, p *domain.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.promotions[p.ID]; exists {
		return domain.ErrInvalidPromotion
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.promotions[p.ID] = *p
	return nil
}

func (r *MemoryRepository) ListPromotions(ctx context.Context) ([]*domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Promotion, 0, len(r.promotions))
	for _, p := range r.promotions {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) CreateCode(ctx context.Context, c *domain.DiscountCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codeIndex[c.Code]; exists {
		return domain.ErrDuplicateCode
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.codes[c.ID] = *c
	r.codeIndex[c.Code] = c.ID
	return nil
}

func (r *MemoryRepository) ListCodes(ctx context.Context) ([]*domain.DiscountCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.DiscountCode, 0, len(r.codes))
	for _, c := range r.codes {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
