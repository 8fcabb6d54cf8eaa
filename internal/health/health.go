// Package health inspects configuration, the upstream lookup API and the
// dead-letter queue to produce operator-facing diagnostics.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hookbridge/internal/lookup"
	"hookbridge/internal/queue"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Condition names. Stable identifiers for alerting rules.
const (
	CondMissingLookupUsername = "missing_lookup_username"
	CondMissingWebhookSecret  = "missing_webhook_secret"
	CondLookupFailure         = "lookup_failure"
	CondDeadLetterBacklog     = "dead_letter_backlog"
)

// Condition is one diagnostic finding. Count/Oldest/Latest are only set for
// the dead-letter backlog condition.
type Condition struct {
	Name     string     `json:"name"`
	Severity Severity   `json:"severity"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Count    int        `json:"count,omitempty"`
	Oldest   *time.Time `json:"oldest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
}

// LookupProbe is the slice of the lookup cache the reporter needs.
type LookupProbe interface {
	Get(ctx context.Context, typ lookup.ResourceType, bypass bool) (lookup.Titles, error)
}

// Reporter produces the current set of diagnostic conditions. An empty set
// means healthy.
type Reporter struct {
	lookupUsername string
	webhookSecret  string
	probe          LookupProbe
	queue          queue.Queue
	log            *slog.Logger
}

func NewReporter(lookupUsername, webhookSecret string, probe LookupProbe, q queue.Queue, log *slog.Logger) *Reporter {
	return &Reporter{
		lookupUsername: lookupUsername,
		webhookSecret:  webhookSecret,
		probe:          probe,
		queue:          q,
		log:            log,
	}
}

// Report runs all checks. Check failures become conditions, not errors; the
// returned error covers only the reporter's own inability to inspect the
// queue.
func (r *Reporter) Report(ctx context.Context) ([]Condition, error) {
	conditions := []Condition{}

	if r.lookupUsername == "" {
		conditions = append(conditions, Condition{
			Name:     CondMissingLookupUsername,
			Severity: SeverityError,
			Title:    "Lookup username missing",
			Message:  "No upstream API username is configured. Action and petition titles cannot be fetched and incoming webhooks will fail.",
		})
	}

	if r.webhookSecret == "" {
		conditions = append(conditions, Condition{
			Name:     CondMissingWebhookSecret,
			Severity: SeverityError,
			Title:    "Webhook secret missing",
			Message:  "No shared webhook secret is configured. All incoming webhooks will be rejected.",
		})
	}

	// Probing the upstream API without a username would always fail for the
	// wrong reason, so only probe when one is configured.
	if r.lookupUsername != "" && r.probe != nil {
		for _, typ := range []lookup.ResourceType{lookup.TypeAction, lookup.TypePetition} {
			titles, err := r.probe.Get(ctx, typ, false)
			if err == nil && len(titles) > 0 {
				continue
			}
			msg := fmt.Sprintf("The %s title lookup returned no data.", typ)
			if err != nil {
				msg = fmt.Sprintf("The %s title lookup failed: %s.", typ, err.Error())
			}
			conditions = append(conditions, Condition{
				Name:     CondLookupFailure,
				Severity: SeverityError,
				Title:    "Upstream lookup failing",
				Message:  msg,
			})
			r.log.WarnContext(ctx, "lookup probe failed", "type", string(typ), "error", errString(err))
		}
	}

	stats, err := r.queue.Stats(ctx, queue.DeadLetter)
	if err != nil {
		return conditions, fmt.Errorf("inspecting dead-letter queue: %w", err)
	}
	if stats.Count > 0 {
		oldest, latest := stats.Oldest, stats.Latest
		conditions = append(conditions, Condition{
			Name:     CondDeadLetterBacklog,
			Severity: SeverityWarning,
			Title:    "Unprocessable webhooks found",
			Message: fmt.Sprintf("%d webhook submissions could not be processed and are parked in the dead-letter queue. "+
				"This can happen when spam data is submitted through the forms. Details are in the processing log.", stats.Count),
			Count:  stats.Count,
			Oldest: &oldest,
			Latest: &latest,
		})
	}

	return conditions, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
