// Package lock serializes access to shared physical devices through Redis.
// The print worker holds one lock per printer so concurrent workers cannot
// interleave tickets on the same device.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when extending a lock that already expired or was
// taken over by another holder.
var ErrNotHeld = errors.New("lock: not held")

// Locker acquires Redis-backed locks. RetryBackoff is the pause between
// acquisition attempts inside WithLock; DefaultTTL caps a hold when the
// caller passes none.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
	DefaultTTL   time.Duration
}

// Handle is one held lock. The holder releases it with Unlock and may push
// the expiry out with Extend while a slow ticket is still feeding the device.
type Handle struct {
	locker Locker
	key    string
	token  string
}

// TryLock makes a single non-blocking acquisition attempt. held reports
// whether the lock was obtained; a false with nil error means another holder
// has it.
func (l Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (*Handle, bool, error) {
	if l.R == nil {
		return nil, false, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = l.DefaultTTL
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return &Handle{locker: l, key: key, token: token}, true, nil
}

// WithLock runs fn while holding the lock, polling until it is acquired or
// the context ends. The lock is released even when fn fails.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	for {
		h, held, err := l.TryLock(ctx, key, ttl)
		if err != nil {
			return err
		}
		if held {
			defer h.Unlock(context.Background())
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Extend moves the expiry ttl into the future while the hold is still owned.
func (h *Handle) Extend(ctx context.Context, ttl time.Duration) error {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
else
  return 0
end`
	n, err := h.locker.R.Eval(ctx, script, []string{h.key}, h.token, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Unlock releases the lock if this handle still owns it. An expired or
// taken-over lock is left alone.
func (h *Handle) Unlock(ctx context.Context) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	if err := h.locker.R.Eval(ctx, script, []string{h.key}, h.token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = h.locker.R.Del(ctx, h.key).Err()
		}
	}
}
