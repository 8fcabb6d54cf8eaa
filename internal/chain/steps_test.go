package chain

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookbridge/internal/contact"
	"hookbridge/internal/faults"
	"hookbridge/internal/lookup"
	"hookbridge/internal/submission"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFetcher struct {
	calls  int
	titles lookup.Titles
	err    error
}

func (f *stubFetcher) Fetch(context.Context, lookup.ResourceType) (lookup.Titles, error) {
	f.calls++
	return f.titles, f.err
}

func testDeps(store *contact.InMemoryStore, fetcher lookup.Fetcher) Deps {
	log := discardLogger()
	return Deps{
		Store:    store,
		Resolver: contact.NewResolver(store, log, nil),
		Cache:    lookup.NewCache(fetcher, lookup.NewInMemoryStore(), time.Hour, log, nil),
		Log:      log,
	}
}

func TestParseNames(t *testing.T) {
	cases := []struct {
		name  string
		in    submission.Submission
		first string
		last  string
		fails bool
	}{
		{name: "separate fields", in: submission.Submission{"name": "Wilma", "surname": "Flintstone"}, first: "Wilma", last: "Flintstone"},
		{name: "combined field", in: submission.Submission{"name": "Wilma Flintstone"}, first: "Wilma", last: "Flintstone"},
		{name: "single word", in: submission.Submission{"name": "Wilma"}, first: "Wilma", last: ""},
		{name: "multi word surname", in: submission.Submission{"name": "Wilma van der Flintstone"}, first: "Wilma", last: "van der Flintstone"},
		{name: "extra whitespace", in: submission.Submission{"name": "  Wilma   Flintstone  "}, first: "Wilma", last: "Flintstone"},
		{name: "nothing", in: submission.Submission{}, fails: true},
		{name: "blank name", in: submission.Submission{"name": "   "}, fails: true},
	}

	var d Deps
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pc := &PassContext{Submission: tc.in}
			err := d.parseNames(context.Background(), pc)
			if tc.fails {
				require.Error(t, err)
				assert.Equal(t, faults.CategoryValidation, faults.CategoryOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.first, tc.in["first_name"])
			assert.Equal(t, tc.last, tc.in["last_name"])
		})
	}
}

func TestMergePhone(t *testing.T) {
	ctx := context.Background()
	store := contact.NewInMemoryStore()
	d := testDeps(store, &stubFetcher{})
	id := store.AddContact("Wilma", "Flintstone", "wilma@example.com")

	pc := &PassContext{ContactID: id, Submission: submission.Submission{"phone": "01234 567890"}}
	require.NoError(t, d.mergePhone(ctx, pc))
	assert.Equal(t, []string{"01234 567890"}, store.Phones(id))

	// Same digits, different formatting: no new phone.
	pc.Submission["phone"] = "(01234) 567-890"
	require.NoError(t, d.mergePhone(ctx, pc))
	assert.Len(t, store.Phones(id), 1)

	// No usable digits: no-op.
	pc.Submission["phone"] = "n/a"
	require.NoError(t, d.mergePhone(ctx, pc))
	assert.Len(t, store.Phones(id), 1)
}

func TestMergeAddress(t *testing.T) {
	ctx := context.Background()
	store := contact.NewInMemoryStore()
	d := testDeps(store, &stubFetcher{})
	id := store.AddContact("Wilma", "Flintstone", "wilma@example.com")

	sub := submission.Submission{
		"address1": "Cave 123",
		"address2": "Cave Street",
		"town":     "Rocksville",
		"postcode": "SW1A 0AA",
	}
	pc := &PassContext{ContactID: id, Submission: sub}
	require.NoError(t, d.mergeAddress(ctx, pc))

	addrs := store.Addresses(id)
	require.Len(t, addrs, 1)
	assert.Equal(t, "Cave 123, Cave Street", addrs[0].Street)
	assert.Equal(t, "Home", addrs[0].LocationType)

	// Identical core fields but a different second line is the same address.
	sub["address2"] = "Boulder Lane"
	require.NoError(t, d.mergeAddress(ctx, pc))
	assert.Len(t, store.Addresses(id), 1)

	// Missing a core field: no-op, not an error.
	pc2 := &PassContext{ContactID: id, Submission: submission.Submission{"address1": "Cave 123"}}
	require.NoError(t, d.mergeAddress(ctx, pc2))
	assert.Len(t, store.Addresses(id), 1)
}

func TestRecordActivity(t *testing.T) {
	ctx := context.Background()

	t.Run("subject includes looked-up title", func(t *testing.T) {
		store := contact.NewInMemoryStore()
		d := testDeps(store, &stubFetcher{titles: lookup.Titles{"123": "Some demo action"}})
		id := store.AddContact("Wilma", "Flintstone", "wilma@example.com")

		pc := &PassContext{ContactID: id, Submission: submission.Submission{
			"actionid": "123",
			"date":     "2021-02-03 12:34:56",
		}}
		require.NoError(t, d.recordActivity(ctx, pc))
		assert.NotZero(t, pc.ActivityID)

		acts := store.Activities(id)
		require.Len(t, acts, 1)
		assert.Equal(t, "Action 123: Some demo action", acts[0].Subject)
		assert.Equal(t, time.Date(2021, 2, 3, 12, 34, 56, 0, time.Local), acts[0].OccurredAt)
	})

	t.Run("petition subject", func(t *testing.T) {
		store := contact.NewInMemoryStore()
		d := testDeps(store, &stubFetcher{titles: lookup.Titles{"9": "Save the caves"}})
		id := store.AddContact("Wilma", "Flintstone", "wilma@example.com")

		pc := &PassContext{ContactID: id, Submission: submission.Submission{
			"actionid":   "9",
			"actiontype": "petition",
		}}
		require.NoError(t, d.recordActivity(ctx, pc))
		assert.Equal(t, "Petition 9: Save the caves", store.Activities(id)[0].Subject)
	})

	t.Run("malformed date falls back to now", func(t *testing.T) {
		store := contact.NewInMemoryStore()
		now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		d := testDeps(store, &stubFetcher{titles: lookup.Titles{"123": "t"}})
		d.Now = func() time.Time { return now }
		id := store.AddContact("Wilma", "Flintstone", "wilma@example.com")

		pc := &PassContext{ContactID: id, Submission: submission.Submission{
			"actionid": "123",
			"date":     "03/02/2021",
		}}
		require.NoError(t, d.recordActivity(ctx, pc))
		assert.Equal(t, now, store.Activities(id)[0].OccurredAt)
	})

	t.Run("id missing from successful lookup is a processing fault", func(t *testing.T) {
		store := contact.NewInMemoryStore()
		d := testDeps(store, &stubFetcher{titles: lookup.Titles{"456": "other"}})
		id := store.AddContact("Wilma", "Flintstone", "wilma@example.com")

		pc := &PassContext{ContactID: id, Submission: submission.Submission{"actionid": "123"}}
		err := d.recordActivity(ctx, pc)
		require.Error(t, err)
		assert.Equal(t, faults.CategoryProcessing, faults.CategoryOf(err))
		assert.False(t, faults.IsFatalToBatch(err))
	})

	t.Run("repeated submissions always append", func(t *testing.T) {
		store := contact.NewInMemoryStore()
		d := testDeps(store, &stubFetcher{titles: lookup.Titles{"123": "t"}})
		id := store.AddContact("Wilma", "Flintstone", "wilma@example.com")

		pc := &PassContext{ContactID: id, Submission: submission.Submission{"actionid": "123"}}
		require.NoError(t, d.recordActivity(ctx, pc))
		require.NoError(t, d.recordActivity(ctx, pc))
		assert.Len(t, store.Activities(id), 2)
	})
}
