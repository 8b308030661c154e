package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGit(t *testing.T) {
	store, err := OpenGit(t.TempDir(), "tester")
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestGitHistory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := OpenGit(dir, "tester")
	require.NoError(t, err)

	t.Run("Should have no history before the first commit", func(t *testing.T) {
		revisions, err := store.History("collate-project-q3")
		require.NoError(t, err)
		assert.Empty(t, revisions)
	})

	t.Run("Should commit only real changes", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "collate-project-q3", []byte(`{"v":1}`)))
		require.NoError(t, store.Set(ctx, "collate-project-q3", []byte(`{"v":1}`)))
		require.NoError(t, store.Set(ctx, "collate-project-q3", []byte(`{"v":2}`)))
		require.NoError(t, store.Set(ctx, "collate-state", []byte(`{}`)))

		revisions, err := store.History("collate-project-q3")
		require.NoError(t, err)
		require.Len(t, revisions, 2)
		assert.Equal(t, "Save collate-project-q3", revisions[0].Message)
	})

	t.Run("Should reopen an existing repository", func(t *testing.T) {
		reopened, err := OpenGit(dir, "tester")
		require.NoError(t, err)
		value, ok, err := reopened.Get(ctx, "collate-project-q3")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `{"v":2}`, string(value))
	})
}
