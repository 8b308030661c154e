package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedis("redis://"+s.Addr(), "collate:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestRedis(t *testing.T) {
	t.Run("Should satisfy the store contract", func(t *testing.T) {
		store, _ := setupTestRedis(t)
		exerciseStore(t, store)
	})

	t.Run("Should prefix keys without expiry", func(t *testing.T) {
		store, s := setupTestRedis(t)

		require.NoError(t, store.Set(context.Background(), "collate-state", []byte(`{"manualComments":[]}`)))
		raw, err := s.Get("collate:collate-state")
		require.NoError(t, err)
		assert.Equal(t, `{"manualComments":[]}`, raw)
		assert.Zero(t, s.TTL("collate:collate-state"))
	})

	t.Run("Should fail when the server is unreachable", func(t *testing.T) {
		s := miniredis.RunT(t)
		addr := s.Addr()
		s.Close()

		_, err := NewRedis("redis://"+addr, "collate:")
		assert.Error(t, err)
	})

	t.Run("Should reject a malformed URL", func(t *testing.T) {
		_, err := NewRedis("not a url", "")
		assert.Error(t, err)
	})
}
