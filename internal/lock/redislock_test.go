package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dosahub/backend-pos/internal/lock"
)

func TestWithLockIdempotent(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		err := locker.WithLock(ctx, "printer:receipt", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
		require.NoError(t, err)
	}()

	<-firstDone

	go func() {
		err := locker.WithLock(ctx, "printer:receipt", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}()

	close(releaseFirst)
	time.Sleep(20 * time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestTryLockContention(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := lock.Locker{R: client}
	ctx := context.Background()

	h, held, err := locker.TryLock(ctx, "printer:kot", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, held, err = locker.TryLock(ctx, "printer:kot", time.Minute)
	require.NoError(t, err)
	require.False(t, held)

	h.Unlock(ctx)
	h2, held, err := locker.TryLock(ctx, "printer:kot", time.Minute)
	require.NoError(t, err)
	require.True(t, held)
	h2.Unlock(ctx)
}

func TestExtendLostAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := lock.Locker{R: client}
	ctx := context.Background()

	h, held, err := locker.TryLock(ctx, "printer:receipt", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, held)
	require.NoError(t, h.Extend(ctx, time.Minute))

	// Expiry hands the device to the next worker; the stale handle must not
	// be able to win it back.
	mr.FastForward(2 * time.Minute)
	h2, held, err := locker.TryLock(ctx, "printer:receipt", time.Minute)
	require.NoError(t, err)
	require.True(t, held)
	require.ErrorIs(t, h.Extend(ctx, time.Minute), lock.ErrNotHeld)
	h2.Unlock(ctx)
}
