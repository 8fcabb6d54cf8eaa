package contact

import (
	"context"
	"log/slog"
	"strings"

	"hookbridge/internal/platform/metrics"
)

// Resolver maps a (email, name) pair to an existing contact or creates a new
// one. The heuristic trades recall for precision: any unambiguous signal is
// preferred, and when the email turns out to be shared between people with no
// name agreement we create a deliberate duplicate rather than risk attaching
// data to the wrong person.
type Resolver struct {
	store   Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewResolver(store Store, log *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{store: store, log: log, metrics: m}
}

// Resolve returns the contact id for the submission's email and parsed
// names, creating a contact when no existing identity can be trusted.
//
// Priority order over all non-deleted, non-deceased contacts sharing the
// email: no matches creates; a single distinct identity wins even when the
// email row is duplicated; otherwise disambiguate by full name, then last
// name (only when one was submitted), then first name; otherwise create.
func (r *Resolver) Resolve(ctx context.Context, email, firstName, lastName string) (int64, error) {
	matches, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	if len(matches) == 0 {
		id, err := r.create(ctx, firstName, lastName, email)
		if err != nil {
			return 0, err
		}
		r.log.InfoContext(ctx, "created contact because email was not found", "contact_id", id)
		return id, nil
	}

	// Collapse duplicate email rows to distinct identities, keeping first
	// appearance order for deterministic disambiguation.
	var order []int64
	byID := make(map[int64]EmailMatch)
	for _, m := range matches {
		if _, seen := byID[m.ContactID]; !seen {
			order = append(order, m.ContactID)
			byID[m.ContactID] = m
		}
	}

	if len(order) == 1 {
		id := order[0]
		r.log.InfoContext(ctx, "found contact by email match", "contact_id", id)
		return id, nil
	}

	// Multiple people share this email. Full name first; the full and last
	// name rules only fire when a last name was actually submitted.
	if lastName != "" {
		for _, id := range order {
			m := byID[id]
			if m.FirstName == firstName && m.LastName == lastName {
				r.log.InfoContext(ctx, "found contact by email and name match", "contact_id", id)
				return id, nil
			}
		}
		for _, id := range order {
			if byID[id].LastName == lastName {
				r.log.InfoContext(ctx, "found contact by email and last name match", "contact_id", id)
				return id, nil
			}
		}
	}
	for _, id := range order {
		if byID[id].FirstName == firstName {
			r.log.InfoContext(ctx, "found contact by email and first name match", "contact_id", id)
			return id, nil
		}
	}

	// We know the email but think it belongs to someone else.
	id, err := r.create(ctx, firstName, lastName, email)
	if err != nil {
		return 0, err
	}
	r.log.InfoContext(ctx, "created contact because could not match on email and name", "contact_id", id)
	return id, nil
}

func (r *Resolver) create(ctx context.Context, firstName, lastName, email string) (int64, error) {
	id, err := r.store.Create(ctx, firstName, lastName, email)
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.ContactsCreated.Inc()
	}
	return id, nil
}

// NormalizePhone strips everything but digits. An empty result means the
// submission carried no usable phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
