package port

import "context"

// ClaimState 是认领幂等键的结果
type ClaimState int

const (
	// ClaimAcquired 当前请求拿到了这个键，负责完成或释放它
	ClaimAcquired ClaimState = iota + 1
	// ClaimInFlight 另一个请求正在用这个键下单
	ClaimInFlight
	// ClaimCompleted 这个键已经成功下过单，返回对应的订单 id
	ClaimCompleted
)

// IdempotencyStore 是幂等键存储的出站端口。
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (state ClaimState, orderID string, err error)

	// Complete 记录键对应的订单，之后的 Claim 返回 ClaimCompleted
	Complete(ctx context.Context, key, orderID string) error

	// Release 释放仍处于处理中的键，已完成的键不受影响
	Release(ctx context.Context, key string) error
}
