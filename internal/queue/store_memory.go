package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"hookbridge/internal/submission"
	"hookbridge/pkg/platform/sentinel"
)

type memoryItem struct {
	item      Item
	claimedAt *time.Time
}

// InMemoryQueue implements Queue for tests and local development with the
// same claim-lease semantics as the Postgres implementation.
type InMemoryQueue struct {
	mu    sync.Mutex
	items []*memoryItem
	now   func() time.Time
	lease time.Duration
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{now: time.Now, lease: ClaimLease}
}

func (q *InMemoryQueue) Enqueue(_ context.Context, name string, sub submission.Submission) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.New()
	q.items = append(q.items, &memoryItem{item: Item{
		ID:         id,
		Queue:      name,
		Submission: sub.Clone(),
		EnqueuedAt: q.now(),
	}})
	return id, nil
}

func (q *InMemoryQueue) ClaimNext(_ context.Context, name string) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for _, mi := range q.items {
		if mi.item.Queue != name {
			continue
		}
		if mi.claimedAt != nil && now.Sub(*mi.claimedAt) < q.lease {
			continue
		}
		claimed := now
		mi.claimedAt = &claimed
		copied := mi.item
		copied.Submission = mi.item.Submission.Clone()
		return &copied, nil
	}
	return nil, sentinel.ErrQueueEmpty
}

func (q *InMemoryQueue) Delete(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, mi := range q.items {
		if mi.item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (q *InMemoryQueue) Move(_ context.Context, id uuid.UUID, toQueue string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, mi := range q.items {
		if mi.item.ID == id {
			mi.item.Queue = toQueue
			mi.item.EnqueuedAt = q.now()
			mi.claimedAt = nil
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (q *InMemoryQueue) Stats(_ context.Context, name string) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var stats Stats
	for _, mi := range q.items {
		if mi.item.Queue != name {
			continue
		}
		stats.Count++
		at := mi.item.EnqueuedAt
		if stats.Oldest.IsZero() || at.Before(stats.Oldest) {
			stats.Oldest = at
		}
		if at.After(stats.Latest) {
			stats.Latest = at
		}
	}
	return stats, nil
}
