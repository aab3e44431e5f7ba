package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runUserStoreContract exercises the behaviour every UserStore must share.
// The store is expected to start empty.
func runUserStoreContract(t *testing.T, store UserStore) {
	t.Helper()
	ctx := context.Background()

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	alice, err := store.Insert(ctx, "alice", "alice@example.com", "hash-a")
	require.NoError(t, err)
	require.NotZero(t, alice.ID)

	bob, err := store.Insert(ctx, "bob", "bob@example.com", "hash-b")
	require.NoError(t, err)
	require.Greater(t, bob.ID, alice.ID)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := store.Insert(ctx, "alice2", "alice@example.com", "h")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := store.Insert(ctx, "alice", "other@example.com", "h")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("find by email and id", func(t *testing.T) {
		got, err := store.FindByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, got.ID)
		assert.Equal(t, "hash-b", got.PasswordHash)

		got, err = store.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		_, err = store.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.FindByID(ctx, 999999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("email taken excludes self", func(t *testing.T) {
		taken, err := store.EmailTaken(ctx, "alice@example.com", alice.ID)
		require.NoError(t, err)
		assert.False(t, taken)

		taken, err = store.EmailTaken(ctx, "alice@example.com", bob.ID)
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("list ordered by id", func(t *testing.T) {
		users, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, alice.ID, users[0].ID)
		assert.Equal(t, bob.ID, users[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		updated := *alice
		updated.Username = "alice-renamed"
		require.NoError(t, store.Update(ctx, &updated))

		got, err := store.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice-renamed", got.Username)
		assert.Equal(t, "alice@example.com", got.Email)

		clash := *got
		clash.Email = "bob@example.com"
		assert.ErrorIs(t, store.Update(ctx, &clash), ErrConflict)

		missing := *got
		missing.ID = 999999
		missing.Username = "nobody"
		missing.Email = "nobody@example.com"
		assert.ErrorIs(t, store.Update(ctx, &missing), ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, bob.ID))
		_, err := store.FindByID(ctx, bob.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, bob.ID), ErrNotFound)
	})
}
