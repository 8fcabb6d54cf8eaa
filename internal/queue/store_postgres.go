package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hookbridge/internal/submission"
	"hookbridge/pkg/platform/sentinel"
)

// PostgresQueue is the production queue. Claims use FOR UPDATE SKIP LOCKED so
// concurrent runs never hand the same item to two workers; a claim that finds
// nothing is the normal empty-queue signal.
type PostgresQueue struct {
	db    *sql.DB
	lease time.Duration
}

func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db, lease: ClaimLease}
}

// Migrate creates the queue table when it does not exist yet.
func (q *PostgresQueue) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS queue_items (
		id UUID PRIMARY KEY,
		queue_name TEXT NOT NULL,
		payload JSONB NOT NULL,
		enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		claimed_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS queue_items_claim_idx ON queue_items (queue_name, enqueued_at);`
	if _, err := q.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate queue schema: %w", err)
	}
	return nil
}

func (q *PostgresQueue) Enqueue(ctx context.Context, name string, sub submission.Submission) (uuid.UUID, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode queue payload: %w", err)
	}
	id := uuid.New()
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO queue_items (id, queue_name, payload) VALUES ($1, $2, $3)`,
		id, name, payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue onto %s: %w", name, err)
	}
	return id, nil
}

// ClaimNext leases the oldest claimable item. Items whose claim outlived the
// lease window are claimable again: the previous worker is presumed dead and
// the item is redelivered (at-least-once).
func (q *PostgresQueue) ClaimNext(ctx context.Context, name string) (*Item, error) {
	const query = `
		UPDATE queue_items SET claimed_at = now()
		WHERE id = (
			SELECT id FROM queue_items
			WHERE queue_name = $1
			  AND (claimed_at IS NULL OR claimed_at < now() - $2::interval)
			ORDER BY enqueued_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue_name, payload, enqueued_at`

	interval := fmt.Sprintf("%f seconds", q.lease.Seconds())

	var (
		item    Item
		payload []byte
	)
	err := q.db.QueryRowContext(ctx, query, name, interval).
		Scan(&item.ID, &item.Queue, &payload, &item.EnqueuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("claim next on %s: %w", name, err)
	}
	if err := json.Unmarshal(payload, &item.Submission); err != nil {
		return nil, fmt.Errorf("decode queue payload %s: %w", item.ID, err)
	}
	return &item, nil
}

func (q *PostgresQueue) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete queue item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (q *PostgresQueue) Move(ctx context.Context, id uuid.UUID, toQueue string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE queue_items SET queue_name = $2, claimed_at = NULL, enqueued_at = now() WHERE id = $1`,
		id, toQueue)
	if err != nil {
		return fmt.Errorf("move queue item %s to %s: %w", id, toQueue, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (q *PostgresQueue) Stats(ctx context.Context, name string) (Stats, error) {
	const query = `
		SELECT COUNT(*), COALESCE(MIN(enqueued_at), 'epoch'), COALESCE(MAX(enqueued_at), 'epoch')
		FROM queue_items WHERE queue_name = $1`
	var stats Stats
	err := q.db.QueryRowContext(ctx, query, name).Scan(&stats.Count, &stats.Oldest, &stats.Latest)
	if err != nil {
		return Stats{}, fmt.Errorf("stats for %s: %w", name, err)
	}
	if stats.Count == 0 {
		stats.Oldest, stats.Latest = time.Time{}, time.Time{}
	}
	return stats, nil
}
