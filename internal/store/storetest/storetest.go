// Package storetest is the behaviour every store driver must share.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/praxis/internal/store"
)

// Run exercises st against the store.Store contract. st must start empty.
func Run(t *testing.T, st store.Store) {
	t.Helper()
	ctx := t.Context()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, st.Ping(ctx))
	})

	t.Run("get missing key", func(t *testing.T) {
		_, err := st.Get(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, st.Set(ctx, store.KeyAccessToken, "token-1"))
		got, err := st.Get(ctx, store.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, "token-1", got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, st.Set(ctx, store.KeyAccessToken, "token-2"))
		got, err := st.Get(ctx, store.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, "token-2", got)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		require.NoError(t, st.Set(ctx, store.KeyTempToken, ""))
		got, err := st.Get(ctx, store.KeyTempToken)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("delete many keys", func(t *testing.T) {
		require.NoError(t, st.Set(ctx, store.KeyUser, `{"id":"u-1"}`))
		require.NoError(t, st.Set(ctx, store.KeyDeviceID, "device"))

		require.NoError(t, st.Delete(ctx, store.SessionKeys...))

		for _, key := range store.SessionKeys {
			_, err := st.Get(ctx, key)
			require.ErrorIs(t, err, store.ErrNotFound, key)
		}

		got, err := st.Get(ctx, store.KeyDeviceID)
		require.NoError(t, err)
		require.Equal(t, "device", got)
	})

	t.Run("delete missing and no keys", func(t *testing.T) {
		require.NoError(t, st.Delete(ctx, "never-set"))
		require.NoError(t, st.Delete(ctx))
	})
}
