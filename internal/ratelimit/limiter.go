// Package ratelimit throttles abuse-prone endpoints, most importantly coupon
// code attempts, with a sliding window counter on Redis sorted sets. With no
// Redis configured the limiter fails open so the register keeps working.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Result reports one admission decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts events per key inside a sliding window.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow records one event for the key and reports whether it stays within
// max events per window. Events older than the window are pruned on every
// call, so no background sweeper is needed.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Result, error) {
	now := l.now()
	reset := now.Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return Result{Allowed: true, Remaining: max, ResetAt: reset}, nil
	}

	redisKey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{ResetAt: reset}, err
	}

	used := int(count.Val())
	res := Result{
		Allowed:   used <= max,
		Remaining: max - used,
		ResetAt:   reset,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}
