package printer

import (
	"context"

	"github.com/dosahub/backend-pos/internal/queue"
)

// QueueSink publishes print jobs to the durable Redis queue for the worker
// process to deliver.
type QueueSink struct {
	Enq queue.Enqueuer
}

// EnqueuePrint serializes the job and enqueues it under its idempotency key,
// so a retried finalize cannot double-print the same ticket.
func (q QueueSink) EnqueuePrint(ctx context.Context, job Job) error {
	payload, err := job.Encode()
	if err != nil {
		return err
	}
	return q.Enq.Enqueue(ctx, queue.Task{
		Kind:           TaskKind,
		Payload:        payload,
		IdempotencyKey: job.IdempotencyKey(),
	})
}
