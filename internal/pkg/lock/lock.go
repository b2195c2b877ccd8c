// Package lock 提供按资源名互斥的锁抽象，ZooKeeper 实现见 internal/zookeeper。
package lock

import (
	"context"
	"sync"
)

// Locker 按资源名获取互斥锁，返回的 release 必须被调用且只调用一次。
type Locker interface {
	Acquire(ctx context.Context, resource string) (release func(), err error)
}

// LocalLocker 是进程内实现，单实例部署或未启用 ZooKeeper 时使用。
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, resource string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[resource]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[resource] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
