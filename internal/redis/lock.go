package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// Locker serialises the multi-step lifecycle operations (modify, revert,
// cancel, RAT kit collection) of a single booking across API replicas.
type Locker interface {
	WithBookingLock(ctx context.Context, bookingID string, fn func(ctx context.Context) error) error
}

const retryInterval = 25 * time.Millisecond

type redisBookingLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

type LockOption func(*redisBookingLocker)

// WithAcquireWait lets WithBookingLock retry a held lock for up to d before
// giving up. The default is to fail at once.
func WithAcquireWait(d time.Duration) LockOption {
	return func(l *redisBookingLocker) {
		if d > 0 {
			l.wait = d
		}
	}
}

// NewRedisBookingLocker creates a locker keyed by booking id. The lock
// expires after ttl even if its holder dies, and fn runs under a context
// bounded by the same ttl.
func NewRedisBookingLocker(client *redis.Client, ttl time.Duration, opts ...LockOption) Locker {
	l := &redisBookingLocker{
		client: client,
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *redisBookingLocker) WithBookingLock(ctx context.Context, bookingID string, fn func(ctx context.Context) error) error {
	key := lockKey(bookingID)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

func (l *redisBookingLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire booking lock: %w", err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}

func lockKey(bookingID string) string {
	return "lock:booking:" + bookingID
}

// unlockScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is left alone.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisBookingLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
