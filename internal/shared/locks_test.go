package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLocker(rdb, time.Minute)
}

func TestWithLockRunsFn(t *testing.T) {
	locker := newTestLocker(t)

	ran := false
	err := locker.WithLock(context.Background(), OrderLockKey(7), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithLockRejectsConcurrentHolder(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	key := OrderLockKey(7)

	err := locker.WithLock(ctx, key, func(inner context.Context) error {
		return locker.WithLock(inner, key, func(context.Context) error {
			t.Fatal("second holder must not run")
			return nil
		})
	})
	require.ErrorIs(t, err, ErrLockBusy)
}

func TestWithLockReleasesOnCompletion(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	key := OrderLockKey(7)

	require.NoError(t, locker.WithLock(ctx, key, func(context.Context) error { return nil }))
	require.NoError(t, locker.WithLock(ctx, key, func(context.Context) error { return nil }))
}

func TestWithLockDistinctKeysDoNotContend(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	err := locker.WithLock(ctx, OrderLockKey(1), func(inner context.Context) error {
		return locker.WithLock(inner, OrderLockKey(2), func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestWithLockNilLockerPassesThrough(t *testing.T) {
	var locker *Locker
	ran := false
	err := locker.WithLock(context.Background(), OrderLockKey(1), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
