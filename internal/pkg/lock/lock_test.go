package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesSameResource(t *testing.T) {
	l := NewLocalLocker()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "products")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "categories")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "categories")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Acquire(context.Background(), "products")
	require.NoError(t, err)
	other()
}

func TestLocalLocker_ReleaseIsIdempotent(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "products")
	require.NoError(t, err)
	release()
	release()

	again, err := l.Acquire(context.Background(), "products")
	require.NoError(t, err)
	again()
}
