package adapter

import (
	"context"
	"sync"
	"time"

	"huerta/internal/service/order/domain/port"
)

// sweepThreshold 超过这个条目数时在认领前清理过期的键
const sweepThreshold = 10000

type idempotencyEntry struct {
	orderID   string // 为空表示处理中
	expiresAt time.Time
}

// IdempotencyMemoryAdapter 是单实例部署时的进程内实现，语义与 Redis 实现一致。
type IdempotencyMemoryAdapter struct {
	mu         sync.Mutex
	entries    map[string]idempotencyEntry
	ttl        time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

func NewIdempotencyMemoryAdapter(ttl, pendingTTL time.Duration) *IdempotencyMemoryAdapter {
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &IdempotencyMemoryAdapter{
		entries:    make(map[string]idempotencyEntry),
		ttl:        ttl,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

func (a *IdempotencyMemoryAdapter) Claim(ctx context.Context, key string) (port.ClaimState, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if len(a.entries) > sweepThreshold {
		for k, e := range a.entries {
			if !now.Before(e.expiresAt) {
				delete(a.entries, k)
			}
		}
	}
	if e, ok := a.entries[key]; ok && now.Before(e.expiresAt) {
		if e.orderID == "" {
			return port.ClaimInFlight, "", nil
		}
		return port.ClaimCompleted, e.orderID, nil
	}
	a.entries[key] = idempotencyEntry{expiresAt: now.Add(a.pendingTTL)}
	return port.ClaimAcquired, "", nil
}

func (a *IdempotencyMemoryAdapter) Complete(ctx context.Context, key, orderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[key] = idempotencyEntry{orderID: orderID, expiresAt: a.now().Add(a.ttl)}
	return nil
}

func (a *IdempotencyMemoryAdapter) Release(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[key]; ok && e.orderID == "" {
		delete(a.entries, key)
	}
	return nil
}
