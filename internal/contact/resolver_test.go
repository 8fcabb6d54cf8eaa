package contact_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"hookbridge/internal/contact"
	"hookbridge/internal/contact/mocks"
)

func newResolver(store contact.Store) *contact.Resolver {
	return contact.NewResolver(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestResolve_NoMatchCreates(t *testing.T) {
	store := contact.NewInMemoryStore()
	r := newResolver(store)

	id, err := r.Resolve(context.Background(), "wilma@example.com", "Wilma", "Flintstone")
	require.NoError(t, err)
	assert.NotZero(t, id)

	contacts, _, _, _ := store.Counts()
	assert.Equal(t, 1, contacts)
}

func TestResolve_SingleMatchIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	r := newResolver(store)

	store.EXPECT().FindByEmail(gomock.Any(), "wilma@example.com").Return([]contact.EmailMatch{
		{ContactID: 42, FirstName: "Wilma", LastName: "Flintstone"},
	}, nil)
	// No Create expectation: repeated webhook delivery for the same person
	// must not create a contact.

	id, err := r.Resolve(context.Background(), "wilma@example.com", "Wilma", "Flintstone")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestResolve_DuplicateEmailRowsSameContact(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	r := newResolver(store)

	store.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return([]contact.EmailMatch{
		{ContactID: 7, FirstName: "Wilma", LastName: "Flintstone"},
		{ContactID: 7, FirstName: "Wilma", LastName: "Flintstone"},
	}, nil)

	id, err := r.Resolve(context.Background(), "wilma@example.com", "Betty", "Rubble")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id, "a duplicated email row still identifies one person")
}

func TestResolve_SharedEmailDisambiguation(t *testing.T) {
	shared := []contact.EmailMatch{
		{ContactID: 1, FirstName: "Fred", LastName: "Flintstone"},
		{ContactID: 2, FirstName: "Wilma", LastName: "Flintstone"},
		{ContactID: 3, FirstName: "Wilma", LastName: "Slaghoople"},
	}

	cases := []struct {
		name   string
		first  string
		last   string
		expect int64
	}{
		{name: "full name wins", first: "Wilma", last: "Flintstone", expect: 2},
		{name: "last name only", first: "Pebbles", last: "Slaghoople", expect: 3},
		{name: "first name only", first: "Fred", last: "Granite", expect: 1},
		{name: "first name when no last submitted", first: "Wilma", last: "", expect: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockStore(ctrl)
			store.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(shared, nil)

			id, err := newResolver(store).Resolve(context.Background(), "flintstones@example.com", tc.first, tc.last)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, id)
		})
	}
}

func TestResolve_AmbiguousEmailCreatesNewContact(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return([]contact.EmailMatch{
		{ContactID: 1, FirstName: "Fred", LastName: "Flintstone"},
		{ContactID: 2, FirstName: "Barney", LastName: "Rubble"},
	}, nil)
	store.EXPECT().Create(gomock.Any(), "Dino", "Saur", "flintstones@example.com").Return(int64(99), nil)

	id, err := newResolver(store).Resolve(context.Background(), "flintstones@example.com", "Dino", "Saur")
	require.NoError(t, err)
	assert.Equal(t, int64(99), id, "untrustworthy email must yield a new contact, not a wrong attach")
}

func TestResolve_ExcludesDeceased(t *testing.T) {
	store := contact.NewInMemoryStore()
	dead := store.AddContact("Wilma", "Flintstone", "wilma@example.com")
	store.MarkDeceased(dead)

	id, err := newResolver(store).Resolve(context.Background(), "wilma@example.com", "Wilma", "Flintstone")
	require.NoError(t, err)
	assert.NotEqual(t, dead, id)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "01234567890", contact.NormalizePhone("01234 567890"))
	assert.Equal(t, "441234567890", contact.NormalizePhone("+44 (1234) 567-890"))
	assert.Equal(t, "", contact.NormalizePhone("ext."))
}
