// Package queue provides the durable work queue between the webhook receiver
// and the processing runner: at-least-once delivery, FIFO per queue, and a
// dead-letter queue that nothing consumes automatically.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hookbridge/internal/submission"
)

// Named queues. Primary holds work to do; DeadLetter holds items that failed
// processing. The dead-letter queue deliberately has no runner: accumulation
// there is itself the operator signal.
const (
	Primary    = "webhooks"
	DeadLetter = "webhooks-failed"
)

// ClaimLease is how long a claimed item stays invisible to other claimants.
// A worker that crashes mid-item loses its claim after this window and the
// item is redelivered.
const ClaimLease = 10 * time.Minute

// Item is one durable envelope wrapping a sanitized submission.
type Item struct {
	ID         uuid.UUID
	Queue      string
	Submission submission.Submission
	EnqueuedAt time.Time
}

// Stats summarizes one named queue for diagnostics.
type Stats struct {
	Count  int
	Oldest time.Time
	Latest time.Time
}

// Queue is the durable queue contract.
//
// Enqueue is append-only and must never truncate or reset an existing queue.
// ClaimNext leases one item exclusively, oldest first, returning
// sentinel.ErrQueueEmpty (possibly wrapped) when nothing is claimable, which
// is a normal stop signal for the runner, not an error. Delete removes
// a processed item permanently. Move re-homes a failed item onto another
// queue in one durable write, releasing the claim.
type Queue interface {
	Enqueue(ctx context.Context, name string, sub submission.Submission) (uuid.UUID, error)
	ClaimNext(ctx context.Context, name string) (*Item, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Move(ctx context.Context, id uuid.UUID, toQueue string) error
	Stats(ctx context.Context, name string) (Stats, error)
}
