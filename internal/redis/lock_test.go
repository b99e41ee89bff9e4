package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestWithBookingLockRunsAndReleases(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisBookingLocker(client, time.Second)

	ran := false
	err := locker.WithBookingLock(context.Background(), "b-1", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(lockKey("b-1")))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(lockKey("b-1")), "lock must be released after fn returns")
}

func TestWithBookingLockRejectsConcurrentHolder(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisBookingLocker(client, time.Second)

	require.NoError(t, mr.Set(lockKey("b-2"), "someone-else"))

	called := false
	err := locker.WithBookingLock(context.Background(), "b-2", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)

	got, err := mr.Get(lockKey("b-2"))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got, "a foreign lock must not be released")
}

func TestWithBookingLockPropagatesError(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisBookingLocker(client, time.Second)

	boom := errors.New("boom")
	err := locker.WithBookingLock(context.Background(), "b-3", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(lockKey("b-3")))
}

func TestWithBookingLockWaitsForRelease(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisBookingLocker(client, time.Second, WithAcquireWait(2*time.Second))

	require.NoError(t, mr.Set(lockKey("b-4"), "someone-else"))
	go func() {
		time.Sleep(100 * time.Millisecond)
		mr.Del(lockKey("b-4"))
	}()

	called := false
	err := locker.WithBookingLock(context.Background(), "b-4", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithBookingLockGivesUpAfterWait(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisBookingLocker(client, time.Second, WithAcquireWait(60*time.Millisecond))

	require.NoError(t, mr.Set(lockKey("b-5"), "someone-else"))

	start := time.Now()
	err := locker.WithBookingLock(context.Background(), "b-5", func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestWithBookingLockStopsWaitingOnCancel(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisBookingLocker(client, time.Second, WithAcquireWait(time.Minute))

	require.NoError(t, mr.Set(lockKey("b-6"), "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := locker.WithBookingLock(ctx, "b-6", func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
