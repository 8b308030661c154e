package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Should report a missing key", func(t *testing.T) {
		value, ok, err := store.Get(ctx, "collate-missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, value)
	})

	t.Run("Should overwrite a key in full", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "collate-state", []byte(`{"a":1,"long":"value"}`)))
		require.NoError(t, store.Set(ctx, "collate-state", []byte(`{"b":2}`)))

		value, ok, err := store.Get(ctx, "collate-state")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"b":2}`, string(value))
	})

	t.Run("Should keep keys with awkward characters apart", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "collate-project-a/b", []byte("slash")))
		require.NoError(t, store.Set(ctx, "collate-project-a b", []byte("space")))

		value, ok, err := store.Get(ctx, "collate-project-a/b")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "slash", string(value))

		value, ok, err = store.Get(ctx, "collate-project-a b")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "space", string(value))
	})

	t.Run("Should remove keys idempotently", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "collate-autosave", []byte("{}")))
		require.NoError(t, store.Remove(ctx, "collate-autosave"))
		require.NoError(t, store.Remove(ctx, "collate-autosave"))

		_, ok, err := store.Get(ctx, "collate-autosave")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should reject empty keys", func(t *testing.T) {
		assert.ErrorIs(t, store.Set(ctx, " ", []byte("x")), ErrEmptyKey)
		_, _, err := store.Get(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
		assert.ErrorIs(t, store.Remove(ctx, ""), ErrEmptyKey)
	})

	t.Run("Should answer a ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestMemory(t *testing.T) {
	store := NewMemory()
	exerciseStore(t, store)

	t.Run("Should not share buffers with callers", func(t *testing.T) {
		ctx := context.Background()
		value := []byte("original")
		require.NoError(t, store.Set(ctx, "k", value))
		value[0] = 'X'

		got, _, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "original", string(got))
	})
}

func TestFile(t *testing.T) {
	store, err := NewFile(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, store)

	t.Run("Should list keys without temp files", func(t *testing.T) {
		keys, err := store.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"collate-project-a b", "collate-project-a/b", "collate-state"}, keys)
	})
}

func TestSQLite(t *testing.T) {
	store, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	exerciseStore(t, store)
}

func TestSQLiteFilePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/collate.db"

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "collate-state", []byte("kept")))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })
	value, ok, err := second.Get(ctx, "collate-state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kept", string(value))
}
