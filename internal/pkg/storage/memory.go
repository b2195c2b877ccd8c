package storage

import (
	"context"
	"sync"
)

// Snapshotter 由内存仓储实现，用于事务回滚。
type Snapshotter interface {
	Snapshot() any
	Restore(state any)
}

type memTxKey struct{}

// MemoryTxManager 用一把全局锁串行化所有事务，失败时把已登记的仓储恢复到事务开始前的快照。
// 效果等价于 SERIALIZABLE 隔离级别，只适合单实例开发和测试。
// 回滚会把整个仓储恢复成快照，所以登记过的仓储只能在 WithinTx 内写入，否则并发写入会在别的事务回滚时丢失。
type MemoryTxManager struct {
	mu           sync.Mutex
	participants []Snapshotter
}

func NewMemoryTxManager(participants ...Snapshotter) *MemoryTxManager {
	return &MemoryTxManager{participants: participants}
}

// Register 登记参与事务的仓储，需在开始处理请求前完成。
func (m *MemoryTxManager) Register(participants ...Snapshotter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants = append(m.participants, participants...)
}

func (m *MemoryTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshots := make([]any, len(m.participants))
	for i, p := range m.participants {
		snapshots[i] = p.Snapshot()
	}
	rollback := func() {
		for i, p := range m.participants {
			p.Restore(snapshots[i])
		}
	}
	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		rollback()
	}
	return err
}
