// Package queue implements a small delayed task queue on Redis sorted sets.
// Checkout enqueues receipt print jobs here; the worker leases them with a
// visibility timeout, retries with exponential backoff and dead-letters jobs
// that exhaust their attempts. A failed print never touches the finalized
// order it was rendered from.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dosahub/backend-pos/internal/resilience"
)

// Task represents a job to be processed asynchronously.
type Task struct {
	Kind           string
	Payload        []byte
	IdempotencyKey string
	MaxAttempts    int
	Delay          time.Duration
}

type taskMessage struct {
	Kind        string `json:"kind"`
	Key         string `json:"key,omitempty"`
	Payload     []byte `json:"payload"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	AvailableAt int64  `json:"available_at"`
}

// Enqueuer publishes tasks to Redis backed queues.
type Enqueuer struct {
	R        *redis.Client
	Prefix   string
	DedupTTL time.Duration
}

// Enqueue inserts the task into its queue. When an idempotency key is
// supplied the task is only enqueued once within the deduplication window,
// so retrying a finalize request cannot double-print a receipt.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) error {
	if e.R == nil {
		return errors.New("queue: redis client not configured")
	}
	if t.Kind == "" {
		return errors.New("queue: task kind is required")
	}
	msg := taskMessage{
		Kind:        t.Kind,
		Key:         t.IdempotencyKey,
		Payload:     t.Payload,
		MaxAttempts: t.MaxAttempts,
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = 5
	}
	msg.AvailableAt = time.Now().Add(t.Delay).UnixNano()

	if msg.Key != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := e.R.SetNX(ctx, dedupKey(e.Prefix, msg.Kind, msg.Key), "1", ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.R.ZAdd(ctx, queueKey(e.Prefix, msg.Kind), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
}

// Worker consumes tasks for a specific kind.
type Worker struct {
	R                 *redis.Client
	Prefix            string
	Kind              string
	Concurrency       int
	VisibilityTimeout time.Duration
	RetryBase         time.Duration
	RetryJitter       float64
	Handler           func(context.Context, Task) error
	OnDeadLetter      func(context.Context, Task)
}

// Run processes tasks until the context is cancelled. Leased tasks are
// tracked in a processing set so they are redelivered when a worker dies
// before acking.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	if w.Kind == "" {
		return errors.New("queue: worker kind is required")
	}
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	visibility := w.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	retryBase := w.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}

	qKey := queueKey(w.Prefix, w.Kind)
	pKey := processingKey(w.Prefix, w.Kind)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	requeueTicker := time.NewTicker(time.Second)
	defer requeueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-requeueTicker.C:
			if err := w.requeueExpired(ctx, pKey, qKey); err != nil {
				return err
			}
		default:
		}

		res, err := w.R.ZPopMin(ctx, qKey, 1).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				wg.Wait()
				return ctx.Err()
			}
			if errors.Is(err, redis.Nil) {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}
		if len(res) == 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		member, ok := res[0].Member.(string)
		if !ok {
			continue
		}
		msg, err := decodeMessage(member)
		if err != nil {
			continue
		}
		now := time.Now().UnixNano()
		if msg.AvailableAt > now {
			// Not due yet; push back and wait a little.
			w.R.ZAdd(ctx, qKey, redis.Z{Score: float64(msg.AvailableAt), Member: member})
			sleep := time.Duration(msg.AvailableAt - now)
			if sleep > time.Second {
				sleep = time.Second
			}
			time.Sleep(sleep)
			continue
		}

		msg.Attempt++
		rawBytes, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		raw := string(rawBytes)
		deadline := time.Now().Add(visibility).UnixNano()
		if err := w.R.ZAdd(ctx, pKey, redis.Z{Score: float64(deadline), Member: raw}).Err(); err != nil {
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(raw string, m taskMessage) {
			defer func() { <-sem }()
			defer wg.Done()
			task := Task{Kind: w.Kind, Payload: m.Payload, IdempotencyKey: m.Key, MaxAttempts: m.MaxAttempts}
			if err := w.Handler(ctx, task); err != nil {
				w.handleFailure(ctx, qKey, pKey, raw, m, retryBase)
				return
			}
			w.ack(ctx, pKey, raw, m)
		}(raw, msg)
	}
}

func (w Worker) handleFailure(ctx context.Context, qKey, pKey, raw string, msg taskMessage, base time.Duration) {
	_ = w.R.ZRem(ctx, pKey, raw)
	if msg.MaxAttempts > 0 && msg.Attempt >= msg.MaxAttempts {
		if rawBytes, err := json.Marshal(msg); err == nil {
			_ = w.R.LPush(ctx, dlqKey(w.Prefix, msg.Kind), rawBytes).Err()
		}
		if msg.Key != "" {
			_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Kind, msg.Key)).Err()
		}
		if w.OnDeadLetter != nil {
			w.OnDeadLetter(ctx, Task{Kind: w.Kind, Payload: msg.Payload, IdempotencyKey: msg.Key})
		}
		return
	}
	msg.AvailableAt = time.Now().Add(resilience.Backoff(base, msg.Attempt, w.RetryJitter)).UnixNano()
	if rawBytes, err := json.Marshal(msg); err == nil {
		_ = w.R.ZAdd(ctx, qKey, redis.Z{Score: float64(msg.AvailableAt), Member: string(rawBytes)}).Err()
	}
}

func (w Worker) ack(ctx context.Context, pKey, raw string, msg taskMessage) {
	_ = w.R.ZRem(ctx, pKey, raw)
	if msg.Key != "" {
		_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Kind, msg.Key)).Err()
	}
}

func (w Worker) requeueExpired(ctx context.Context, pKey, qKey string) error {
	now := float64(time.Now().UnixNano())
	due, err := w.R.ZRangeByScore(ctx, pKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, raw := range due {
		msg, err := decodeMessage(raw)
		if err != nil {
			continue
		}
		_ = w.R.ZRem(ctx, pKey, raw).Err()
		msg.AvailableAt = time.Now().UnixNano()
		if encoded, err := json.Marshal(msg); err == nil {
			_ = w.R.ZAdd(ctx, qKey, redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err()
		}
	}
	return nil
}

// DeadLetters returns up to limit dead-lettered tasks for inspection.
func DeadLetters(ctx context.Context, r *redis.Client, prefix, kind string, limit int64) ([]Task, error) {
	if r == nil {
		return nil, errors.New("queue: redis client not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	raws, err := r.LRange(ctx, dlqKey(prefix, kind), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(raws))
	for _, raw := range raws {
		msg, err := decodeMessage(raw)
		if err != nil {
			continue
		}
		tasks = append(tasks, Task{Kind: msg.Kind, Payload: msg.Payload, IdempotencyKey: msg.Key, MaxAttempts: msg.MaxAttempts})
	}
	return tasks, nil
}

func decodeMessage(raw string) (taskMessage, error) {
	var msg taskMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return taskMessage{}, err
	}
	return msg, nil
}

func queueKey(prefix, kind string) string {
	if prefix == "" {
		return "queue:" + kind
	}
	return prefix + ":queue:" + kind
}

func processingKey(prefix, kind string) string {
	return queueKey(prefix, kind) + ":processing"
}

func dlqKey(prefix, kind string) string {
	return queueKey(prefix, kind) + ":dlq"
}

func dedupKey(prefix, kind, key string) string {
	if prefix == "" {
		return "queue:dedup:" + kind + ":" + key
	}
	return prefix + ":dedup:" + kind + ":" + key
}
