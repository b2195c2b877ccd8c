package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huerta/internal/service/order/domain/port"
)

func TestIdempotencyRedisAdapter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewIdempotencyRedisAdapter(client, 24*time.Hour, time.Minute)
	ctx := context.Background()

	state, _, err := store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, port.ClaimAcquired, state)
	assert.Equal(t, time.Minute, mr.TTL(idempotencyKeyPrefix+"k1"))

	state, _, err = store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, port.ClaimInFlight, state)

	require.NoError(t, store.Release(ctx, "k1"))
	state, _, err = store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, port.ClaimAcquired, state)

	require.NoError(t, store.Complete(ctx, "k1", "order-1"))
	assert.Equal(t, 24*time.Hour, mr.TTL(idempotencyKeyPrefix+"k1"))

	// 已完成的键不会被释放
	require.NoError(t, store.Release(ctx, "k1"))
	state, orderID, err := store.Claim(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, port.ClaimCompleted, state)
	assert.Equal(t, "order-1", orderID)
}

func TestIdempotencyRedisAdapter_PendingExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewIdempotencyRedisAdapter(client, time.Hour, 30*time.Second)
	ctx := context.Background()

	state, _, err := store.Claim(ctx, "k2")
	require.NoError(t, err)
	require.Equal(t, port.ClaimAcquired, state)

	mr.FastForward(31 * time.Second)
	state, _, err = store.Claim(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, port.ClaimAcquired, state)
}

func TestIdempotencyRedisAdapter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, _, err := NewIdempotencyRedisAdapter(client, time.Hour, time.Minute).Claim(context.Background(), "k3")
	assert.Error(t, err)
}

func TestIdempotencyMemoryAdapter(t *testing.T) {
	store := NewIdempotencyMemoryAdapter(time.Hour, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	state, _, _ := store.Claim(ctx, "k")
	assert.Equal(t, port.ClaimAcquired, state)
	state, _, _ = store.Claim(ctx, "k")
	assert.Equal(t, port.ClaimInFlight, state)

	now = now.Add(2 * time.Minute)
	state, _, _ = store.Claim(ctx, "k")
	assert.Equal(t, port.ClaimAcquired, state, "stale pending claim expires")

	require.NoError(t, store.Complete(ctx, "k", "order-9"))
	require.NoError(t, store.Release(ctx, "k"))
	state, orderID, _ := store.Claim(ctx, "k")
	assert.Equal(t, port.ClaimCompleted, state)
	assert.Equal(t, "order-9", orderID)

	now = now.Add(2 * time.Hour)
	state, _, _ = store.Claim(ctx, "k")
	assert.Equal(t, port.ClaimAcquired, state)
}
