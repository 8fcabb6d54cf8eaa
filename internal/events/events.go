// Package events publishes processed-interaction notifications for downstream
// consumers (analytics, CRM sync checks). Publishing is strictly best-effort:
// an interaction that is already durably recorded must never be dead-lettered
// because a broker was down.
package events

import (
	"context"
	"time"
)

// Interaction is one processed submission.
type Interaction struct {
	ID         string    `json:"id"`
	ContactID  int64     `json:"contact_id"`
	ActivityID int64     `json:"activity_id"`
	ActionID   string    `json:"action_id,omitempty"`
	ActionType string    `json:"action_type"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits interaction events.
type Publisher interface {
	Publish(ctx context.Context, ev Interaction) error
	Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Interaction) error { return nil }
func (NoopPublisher) Close()                                     {}
