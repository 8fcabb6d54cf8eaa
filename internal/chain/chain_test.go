package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookbridge/internal/contact"
	"hookbridge/internal/events"
	"hookbridge/internal/faults"
	"hookbridge/internal/lookup"
	"hookbridge/internal/submission"
)

func fullSubmission() submission.Submission {
	return submission.Submission{
		"actionid": "123",
		"name":     "Wilma",
		"surname":  "Flintstone",
		"address1": "Cave 123",
		"address2": "Cave Street",
		"town":     "Rocksville",
		"postcode": "SW1A 0AA",
		"country":  "UK",
		"email":    "wilma@example.com",
		"phone":    "01234 567890",
		"optin1":   "1",
		"optin2":   "1",
		"date":     "2021-02-03 12:34:56",
	}
}

func newProcessor(store *contact.InMemoryStore, fetcher lookup.Fetcher) *Processor {
	d := testDeps(store, fetcher)
	registry := NewRegistry(func() []Step { return DefaultSteps(d) })
	return NewProcessor(registry, d.Cache, d.Log)
}

func TestRegistry_AssembledOnceAndFrozen(t *testing.T) {
	builds := 0
	registry := NewRegistry(func() []Step {
		builds++
		return []Step{{Name: "noop", Run: func(context.Context, *PassContext) error { return nil }}}
	})

	require.NoError(t, registry.Register(func(steps []Step) []Step {
		return append(steps, Step{Name: "extra", Run: func(context.Context, *PassContext) error { return nil }})
	}))

	steps := registry.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "extra", steps[1].Name)

	registry.Steps()
	assert.Equal(t, 1, builds, "chain must be assembled exactly once per process")

	assert.ErrorIs(t, registry.Register(func(s []Step) []Step { return s }), ErrRegistryFrozen)

	registry.Reset()
	registry.Steps()
	assert.Equal(t, 2, builds, "explicit reset reassembles from defaults")
	assert.Len(t, registry.Steps(), 1, "customizers are dropped on reset")
}

func TestProcess_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := contact.NewInMemoryStore()
	fetcher := &stubFetcher{titles: lookup.Titles{"123": "Some demo action", "456": "Another action"}}
	p := newProcessor(store, fetcher)

	require.NoError(t, p.Process(ctx, fullSubmission()))

	contacts, phones, addresses, activities := store.Counts()
	assert.Equal(t, 1, contacts)
	assert.Equal(t, 1, phones)
	assert.Equal(t, 1, addresses)
	assert.Equal(t, 1, activities)

	acts := store.Activities(1)
	require.Len(t, acts, 1)
	assert.Equal(t, "Action 123: Some demo action", acts[0].Subject)

	// Resubmitting the identical payload: no new contact, phone or address,
	// but one additional activity.
	require.NoError(t, p.Process(ctx, fullSubmission()))
	contacts, phones, addresses, activities = store.Counts()
	assert.Equal(t, 1, contacts)
	assert.Equal(t, 1, phones)
	assert.Equal(t, 1, addresses)
	assert.Equal(t, 2, activities)

	assert.Equal(t, 1, fetcher.calls, "repeat processing must be served from cache")
}

func TestProcess_LookupUnreachableIsFatalToBatch(t *testing.T) {
	store := contact.NewInMemoryStore()
	fetcher := &stubFetcher{err: errors.New("dial tcp: refused")}
	p := newProcessor(store, fetcher)

	err := p.Process(context.Background(), fullSubmission())
	require.Error(t, err)
	assert.True(t, faults.IsFatalToBatch(err))

	contacts, _, _, _ := store.Counts()
	assert.Zero(t, contacts, "nothing may be written when the precondition fails")
}

func TestProcess_UnknownActionIDIsFatalToBatch(t *testing.T) {
	store := contact.NewInMemoryStore()
	p := newProcessor(store, &stubFetcher{titles: lookup.Titles{"999": "other"}})

	err := p.Process(context.Background(), fullSubmission())
	require.Error(t, err)
	assert.True(t, faults.IsFatalToBatch(err))
}

func TestProcess_StoreFailureIsRecoverable(t *testing.T) {
	store := contact.NewInMemoryStore()
	store.FailCreateActivity = errors.New("value too long for postal_code")
	p := newProcessor(store, &stubFetcher{titles: lookup.Titles{"123": "t"}})

	err := p.Process(context.Background(), fullSubmission())
	require.Error(t, err)
	assert.Equal(t, faults.CategoryProcessing, faults.CategoryOf(err))
	assert.False(t, faults.IsFatalToBatch(err))
}

func TestProcess_NoActionIDSkipsPrecondition(t *testing.T) {
	store := contact.NewInMemoryStore()
	fetcher := &stubFetcher{err: errors.New("down")}
	p := newProcessor(store, fetcher)

	sub := fullSubmission()
	delete(sub, "actionid")
	require.NoError(t, p.Process(context.Background(), sub))
	assert.Zero(t, fetcher.calls)

	acts := store.Activities(1)
	require.Len(t, acts, 1)
	assert.Equal(t, "Action ", acts[0].Subject, "no action id yields the bare subject")
}

func TestProcess_SetsDerivedFields(t *testing.T) {
	store := contact.NewInMemoryStore()
	p := newProcessor(store, &stubFetcher{titles: lookup.Titles{"123": "t"}})

	sub := fullSubmission()
	require.NoError(t, p.Process(context.Background(), sub))
	assert.Equal(t, "Wilma", sub["first_name"])
	assert.Equal(t, "Flintstone", sub["last_name"])
	assert.Equal(t, "1", sub["contactID"])
}

func TestProcess_PublishFailureDoesNotFailChain(t *testing.T) {
	store := contact.NewInMemoryStore()
	d := testDeps(store, &stubFetcher{titles: lookup.Titles{"123": "t"}})
	d.Publisher = failingPublisher{}
	registry := NewRegistry(func() []Step { return DefaultSteps(d) })
	p := NewProcessor(registry, d.Cache, d.Log)

	require.NoError(t, p.Process(context.Background(), fullSubmission()))
	_, _, _, activities := store.Counts()
	assert.Equal(t, 1, activities)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Interaction) error {
	return errors.New("broker down")
}

func (failingPublisher) Close() {}
