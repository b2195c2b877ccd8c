// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"huerta/internal/pkg/logger"
)

const (
	lockRoot = "/huerta_locks" // 所有分布式锁的根节点
)

// Connect 建立 ZooKeeper 会话，zk 客户端的日志转到 zerolog。
func Connect(servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(logger.L()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect zookeeper %v: %w", servers, err)
	}
	return conn, nil
}

// DistributedLock 基于临时顺序节点的公平锁
type DistributedLock struct {
	conn     *zk.Conn
	path     string // 锁的路径，例如 /huerta_locks/reorder-products
	lockNode string // 成功获取锁后，自己创建的节点路径
}

// NewDistributedLock 创建一个新的分布式锁实例，必要时创建父节点
func NewDistributedLock(conn *zk.Conn, resourceID string) (*DistributedLock, error) {
	lockPath := lockRoot + "/" + resourceID
	for _, p := range []string{lockRoot, lockPath} {
		_, err := conn.Create(p, []byte(""), 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return nil, fmt.Errorf("failed to create lock node %s: %w", p, err)
		}
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

// Lock 阻塞直到获取锁或 ctx 结束
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 1. 在锁路径下创建一个临时顺序节点
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath
	myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")

	for {
		// 2. 获取锁路径下的所有子节点并按序号排序
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Slice(children, func(i, j int) bool { return sequence(children[i]) < sequence(children[j]) })

		// 3. 自己是最小节点即获得锁
		idx := -1
		for i, child := range children {
			if child == myNodeName {
				idx = i
				break
			}
		}
		if idx == 0 {
			return nil
		}
		if idx < 0 {
			l.abandon()
			return errors.New("lock node disappeared, session probably expired")
		}

		// 4. 只监听前一个节点，避免羊群效应
		_, _, eventChan, err := l.conn.ExistsW(l.path + "/" + children[idx-1])
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		select {
		case <-eventChan:
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) abandon() {
	if err := l.Unlock(); err != nil {
		logger.L().Warn().Err(err).Str("path", l.path).Msg("failed to remove abandoned lock node")
	}
}

// sequence 取出顺序节点名末尾的 10 位序号，protected 节点带有 GUID 前缀，不能直接按名字排序。
func sequence(node string) string {
	if len(node) < 10 {
		return node
	}
	return node[len(node)-10:]
}

// Locker 把 DistributedLock 适配为 lock.Locker。
type Locker struct {
	conn *zk.Conn
}

func NewLocker(conn *zk.Conn) *Locker {
	return &Locker{conn: conn}
}

func (z *Locker) Acquire(ctx context.Context, resource string) (func(), error) {
	dl, err := NewDistributedLock(z.conn, resource)
	if err != nil {
		return nil, err
	}
	if err := dl.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := dl.Unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("resource", resource).Msg("failed to release zookeeper lock")
		}
	}, nil
}
