package adapter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"huerta/internal/service/order/domain/port"
)

const (
	idempotencyKeyPrefix = "huerta:idem:"
	pendingMarker        = "__pending__"
)

// IdempotencyRedisAdapter 是 port.IdempotencyStore 接口的 Redis 实现。
// 认领用 SET NX 完成，处理中的键 TTL 较短，进程崩溃后不会长期卡住顾客重试。
type IdempotencyRedisAdapter struct {
	client     redis.UniversalClient
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyRedisAdapter ttl 是完成后保留订单 id 的时长，pendingTTL 是处理中状态的最长时长。
func NewIdempotencyRedisAdapter(client redis.UniversalClient, ttl, pendingTTL time.Duration) *IdempotencyRedisAdapter {
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &IdempotencyRedisAdapter{client: client, ttl: ttl, pendingTTL: pendingTTL}
}

func (a *IdempotencyRedisAdapter) Claim(ctx context.Context, key string) (port.ClaimState, string, error) {
	res, err := claimScript.Run(ctx, a.client, []string{idempotencyKeyPrefix + key},
		pendingMarker, a.pendingTTL.Milliseconds()).Slice()
	if err != nil {
		return 0, "", errors.Wrap(err, "idempotency claim script")
	}
	if len(res) != 2 {
		return 0, "", errors.Errorf("unexpected claim result %v", res)
	}
	code, ok := res[0].(int64)
	if !ok {
		return 0, "", errors.Errorf("unexpected result type from Lua script: %T", res[0])
	}
	orderID, _ := res[1].(string)

	switch code {
	case 1:
		return port.ClaimAcquired, "", nil
	case 2:
		return port.ClaimInFlight, "", nil
	case 3:
		return port.ClaimCompleted, orderID, nil
	default:
		return 0, "", errors.Errorf("unknown result code from claim script: %d", code)
	}
}

func (a *IdempotencyRedisAdapter) Complete(ctx context.Context, key, orderID string) error {
	err := a.client.Set(ctx, idempotencyKeyPrefix+key, orderID, a.ttl).Err()
	return errors.Wrap(err, "record idempotency key")
}

func (a *IdempotencyRedisAdapter) Release(ctx context.Context, key string) error {
	err := releaseScript.Run(ctx, a.client, []string{idempotencyKeyPrefix + key}, pendingMarker).Err()
	return errors.Wrap(err, "release idempotency key")
}

// KEYS[1]: 幂等键
// ARGV[1]: 处理中标记
// ARGV[2]: 处理中状态的 TTL，毫秒
// 返回 {1, ''} 认领成功；{2, ''} 正在处理；{3, orderId} 已完成
var claimScript = redis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2]) then
    return {1, ''}
end
local v = redis.call('GET', KEYS[1])
if (not v) or v == ARGV[1] then
    return {2, ''}
end
return {3, v}
`)

// 只删除仍处于处理中的键，已完成的键保持不变
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)
