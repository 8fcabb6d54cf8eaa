//go:build integration

package contact_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookbridge/internal/contact"
	"hookbridge/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	store := contact.NewPostgresStore(pg.DB)
	require.NoError(t, store.Migrate(ctx))

	truncate := func(t *testing.T) {
		t.Helper()
		require.NoError(t, pg.TruncateAll(ctx, "contacts"))
	}

	t.Run("create and find by email", func(t *testing.T) {
		truncate(t)

		id, err := store.Create(ctx, "Wilma", "Flintstone", "wilma@example.org")
		require.NoError(t, err)
		require.NotZero(t, id)

		matches, err := store.FindByEmail(ctx, "wilma@example.org")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, id, matches[0].ContactID)
		assert.Equal(t, "Wilma", matches[0].FirstName)
		assert.Equal(t, "Flintstone", matches[0].LastName)
	})

	t.Run("shared email returns all matches", func(t *testing.T) {
		truncate(t)

		fred, err := store.Create(ctx, "Fred", "Flintstone", "shared@example.org")
		require.NoError(t, err)
		wilma, err := store.Create(ctx, "Wilma", "Flintstone", "shared@example.org")
		require.NoError(t, err)

		matches, err := store.FindByEmail(ctx, "shared@example.org")
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, fred, matches[0].ContactID)
		assert.Equal(t, wilma, matches[1].ContactID)
	})

	t.Run("phone merge is idempotent", func(t *testing.T) {
		truncate(t)

		id, err := store.Create(ctx, "Wilma", "Flintstone", "wilma@example.org")
		require.NoError(t, err)

		found, err := store.FindPhone(ctx, id, "01234567890")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, store.CreatePhone(ctx, id, "01234 567890"))

		found, err = store.FindPhone(ctx, id, "01234567890")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("address identity key ignores second line", func(t *testing.T) {
		truncate(t)

		id, err := store.Create(ctx, "Wilma", "Flintstone", "wilma@example.org")
		require.NoError(t, err)

		require.NoError(t, store.CreateAddress(ctx, id, contact.Address{
			Address1:     "301 Cobblestone Way",
			Street:       "301 Cobblestone Way, Cave 2",
			City:         "Bedrock",
			Postcode:     "BR1 1BR",
			LocationType: "Home",
		}))

		found, err := store.FindAddress(ctx, id, "301 Cobblestone Way", "Bedrock", "BR1 1BR")
		require.NoError(t, err)
		assert.True(t, found)

		found, err = store.FindAddress(ctx, id, "301 Cobblestone Way", "Bedrock", "XX9 9XX")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("activities are never deduplicated", func(t *testing.T) {
		truncate(t)

		id, err := store.Create(ctx, "Wilma", "Flintstone", "wilma@example.org")
		require.NoError(t, err)

		act := contact.Activity{ContactID: id, Subject: "Action 123: Some demo action", OccurredAt: time.Now().UTC()}
		first, err := store.CreateActivity(ctx, act)
		require.NoError(t, err)
		second, err := store.CreateActivity(ctx, act)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("deleted and deceased are excluded", func(t *testing.T) {
		truncate(t)

		id, err := store.Create(ctx, "Wilma", "Flintstone", "wilma@example.org")
		require.NoError(t, err)
		_, err = pg.DB.ExecContext(ctx, `UPDATE contacts SET is_deceased = TRUE WHERE id = $1`, id)
		require.NoError(t, err)

		matches, err := store.FindByEmail(ctx, "wilma@example.org")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}
