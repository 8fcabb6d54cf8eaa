package chain

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hookbridge/internal/contact"
	"hookbridge/internal/events"
	"hookbridge/internal/faults"
	"hookbridge/internal/lookup"
	"hookbridge/internal/submission"
)

// Deps carries everything the default steps need.
type Deps struct {
	Store     contact.Store
	Resolver  *contact.Resolver
	Cache     *lookup.Cache
	Publisher events.Publisher
	Log       *slog.Logger
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// DefaultSteps builds the fixed default sequence.
func DefaultSteps(d Deps) []Step {
	return []Step{
		{Name: "parseNames", Run: d.parseNames},
		{Name: "findOrCreate", Run: d.findOrCreate},
		{Name: "mergePhone", Run: d.mergePhone},
		{Name: "mergeAddress", Run: d.mergeAddress},
		{Name: "recordActivity", Run: d.recordActivity},
		{Name: "publishEvent", Run: d.publishEvent},
	}
}

// parseNames ensures first_name and last_name are set.
//
// The upstream form either collects two name fields (then surname is the
// last name and name the first), or a single combined field. Splitting the
// combined field on whitespace (first token as first name, the rest as
// surname) is unreliable for multi-word first names; collecting separate
// fields upstream is the real fix.
func (d Deps) parseNames(_ context.Context, pc *PassContext) error {
	sub := pc.Submission
	sub[submission.FieldFirstName] = ""
	sub[submission.FieldLastName] = ""

	surname := strings.TrimSpace(sub.Get(submission.FieldSurname))
	name := strings.TrimSpace(sub.Get(submission.FieldName))

	switch {
	case surname != "":
		sub[submission.FieldFirstName] = sub.Get(submission.FieldName)
		sub[submission.FieldLastName] = sub.Get(submission.FieldSurname)
	case name != "":
		parts := strings.Fields(name)
		sub[submission.FieldFirstName] = parts[0]
		sub[submission.FieldLastName] = strings.Join(parts[1:], " ")
	default:
		return faults.New(faults.CategoryValidation, "webhook requires data in the name field")
	}
	return nil
}

// findOrCreate resolves the submission to a contact identity.
func (d Deps) findOrCreate(ctx context.Context, pc *PassContext) error {
	sub := pc.Submission
	id, err := d.Resolver.Resolve(ctx,
		sub.Get(submission.FieldEmail),
		sub.Get(submission.FieldFirstName),
		sub.Get(submission.FieldLastName))
	if err != nil {
		return err
	}
	pc.ContactID = id
	sub["contactID"] = strconv.FormatInt(id, 10)
	return nil
}

// mergePhone records the phone number once per distinct digit sequence.
func (d Deps) mergePhone(ctx context.Context, pc *PassContext) error {
	phone := pc.Submission.Get(submission.FieldPhone)
	numeric := contact.NormalizePhone(phone)
	if numeric == "" {
		return nil
	}
	exists, err := d.Store.FindPhone(ctx, pc.ContactID, numeric)
	if err != nil {
		return err
	}
	if exists {
		d.Log.DebugContext(ctx, "phone already present", "contact_id", pc.ContactID)
		return nil
	}
	if err := d.Store.CreatePhone(ctx, pc.ContactID, phone); err != nil {
		return err
	}
	d.Log.DebugContext(ctx, "created phone", "contact_id", pc.ContactID)
	return nil
}

// mergeAddress records the address once per (address1, town, postcode) key.
// address1 and address2 are mangled into one street line since we don't know
// how supplemental address lines are configured downstream.
func (d Deps) mergeAddress(ctx context.Context, pc *PassContext) error {
	sub := pc.Submission
	address1 := sub.Get(submission.FieldAddress1)
	town := sub.Get(submission.FieldTown)
	postcode := sub.Get(submission.FieldPostcode)
	if address1 == "" || town == "" || postcode == "" {
		return nil
	}

	exists, err := d.Store.FindAddress(ctx, pc.ContactID, address1, town, postcode)
	if err != nil {
		return err
	}
	if exists {
		d.Log.DebugContext(ctx, "address already existed", "contact_id", pc.ContactID)
		return nil
	}

	street := strings.TrimSpace(address1)
	if address2 := strings.TrimSpace(sub.Get(submission.FieldAddress2)); address2 != "" {
		street += ", " + address2
	}
	err = d.Store.CreateAddress(ctx, pc.ContactID, contact.Address{
		Address1:     address1,
		Street:       street,
		City:         town,
		Postcode:     postcode,
		LocationType: "Home",
	})
	if err != nil {
		return err
	}
	d.Log.DebugContext(ctx, "created address", "contact_id", pc.ContactID)
	return nil
}

var activityTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

// recordActivity records the interaction. Activities are never deduplicated:
// every webhook delivery is its own record.
func (d Deps) recordActivity(ctx context.Context, pc *PassContext) error {
	sub := pc.Submission
	isPetition := sub.IsPetition()

	kind := "Action"
	if isPetition {
		kind = "Petition"
	}
	subject := fmt.Sprintf("%s %s", kind, sub.Get(submission.FieldActionID))

	if sub.Has(submission.FieldActionID) {
		// The run-level precondition already proved the lookup reachable;
		// a miss here is a per-item problem, not an upstream outage.
		titles, err := d.Cache.Get(ctx, lookup.ForSubmission(isPetition), false)
		if err != nil {
			return faults.Wrap(faults.CategoryProcessing, err,
				"failed to look up title for actionid "+sub.Get(submission.FieldActionID))
		}
		title, ok := titles[sub.Get(submission.FieldActionID)]
		if !ok {
			return faults.New(faults.CategoryProcessing,
				"failed to look up title for actionid %s", sub.Get(submission.FieldActionID))
		}
		subject += ": " + title
	}

	occurredAt := d.now()
	if raw := sub.Get(submission.FieldDate); activityTimePattern.MatchString(raw) {
		if parsed, err := time.ParseInLocation("2006-01-02 15:04:05", raw, time.Local); err == nil {
			occurredAt = parsed
		}
	}

	id, err := d.Store.CreateActivity(ctx, contact.Activity{
		ContactID:  pc.ContactID,
		Subject:    subject,
		OccurredAt: occurredAt,
	})
	if err != nil {
		return err
	}
	pc.ActivityID = id
	d.Log.InfoContext(ctx, "created activity",
		"activity_id", id, "subject", subject)
	return nil
}

// publishEvent notifies downstream consumers. Best-effort: the interaction is
// already durably recorded, so publish failures are logged and swallowed.
func (d Deps) publishEvent(ctx context.Context, pc *PassContext) error {
	if d.Publisher == nil {
		return nil
	}
	sub := pc.Submission
	ev := events.Interaction{
		ID:         uuid.NewString(),
		ContactID:  pc.ContactID,
		ActivityID: pc.ActivityID,
		ActionID:   sub.Get(submission.FieldActionID),
		ActionType: "action",
		Email:      sub.Get(submission.FieldEmail),
		OccurredAt: d.now(),
	}
	if sub.IsPetition() {
		ev.ActionType = "petition"
	}
	if err := d.Publisher.Publish(ctx, ev); err != nil {
		d.Log.WarnContext(ctx, "interaction event publish failed", "error", err)
	}
	return nil
}
