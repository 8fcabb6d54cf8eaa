// Package runner drains the primary queue through the processing chain,
// classifying failures and routing unprocessable items to the dead-letter
// queue. One runner processes items strictly sequentially; concurrent runs
// coordinate through the queue's claim exclusivity alone.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hookbridge/internal/faults"
	"hookbridge/internal/platform/metrics"
	"hookbridge/internal/queue"
	"hookbridge/internal/submission"
	"hookbridge/pkg/platform/sentinel"
)

// Processor is the chain boundary the runner drives.
type Processor interface {
	Process(ctx context.Context, sub submission.Submission) error
}

// Result reports one run. Callers must surface ErrorCount > 0 to the
// operator (a scheduled job exits non-zero).
type Result struct {
	Processed  int
	ErrorCount int
}

// Runner drains the primary queue.
type Runner struct {
	queue     queue.Queue
	processor Processor
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(q queue.Queue, p Processor, log *slog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{queue: q, processor: p, log: log, metrics: m, now: time.Now}
}

// Run claims and processes items until the queue is empty, a fatal-to-batch
// failure occurs, or the wall-clock budget is exhausted. maxTime <= 0 means
// no budget. The budget is checked only between items: an in-flight item
// always finishes.
//
// Failed items always end in a durable dead-letter write before the loop
// moves on; failures are never silently dropped.
func (r *Runner) Run(ctx context.Context, maxTime time.Duration) (Result, error) {
	var deadline time.Time
	if maxTime > 0 {
		deadline = r.now().Add(maxTime)
	}

	var result Result
	for {
		item, err := r.queue.ClaimNext(ctx, queue.Primary)
		if errors.Is(err, sentinel.ErrQueueEmpty) {
			// Empty, or another worker claimed everything. Normal stop.
			break
		}
		if err != nil {
			return result, err
		}

		start := r.now()
		procErr := r.processor.Process(ctx, item.Submission)
		r.metrics.ObserveProcessing(r.now().Sub(start))

		switch {
		case procErr == nil:
			if err := r.queue.Delete(ctx, item.ID); err != nil {
				return result, err
			}
			result.Processed++
			if r.metrics != nil {
				r.metrics.ItemsProcessed.Inc()
			}

		case faults.IsFatalToBatch(procErr):
			// The rest of the queue will almost certainly fail the same
			// way; park this item and stop instead of draining the whole
			// batch into the dead-letter queue.
			if err := r.deadLetter(ctx, item.ID); err != nil {
				return result, err
			}
			result.ErrorCount++
			r.log.WarnContext(ctx, "aborting run after one failure, error likely to affect rest of queue",
				"item_id", item.ID.String(), "error", procErr.Error())
			return result, nil

		default:
			// Already logged by the chain; keep going.
			if err := r.deadLetter(ctx, item.ID); err != nil {
				return result, err
			}
			result.ErrorCount++
		}

		if !deadline.IsZero() && !r.now().Before(deadline) {
			r.log.InfoContext(ctx, "run budget exhausted, stopping cleanly",
				"processed", result.Processed)
			break
		}
	}
	return result, nil
}

func (r *Runner) deadLetter(ctx context.Context, id uuid.UUID) error {
	if err := r.queue.Move(ctx, id, queue.DeadLetter); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.ItemsDeadLettered.Inc()
	}
	return nil
}
