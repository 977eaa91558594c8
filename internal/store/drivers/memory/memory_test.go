package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/praxis/internal/store/drivers/memory"
	"github.com/aussiebroadwan/praxis/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, memory.NewStore())
}

func TestKeys(t *testing.T) {
	st := memory.NewStore()
	require.NoError(t, st.Set(t.Context(), "a", "1"))
	require.NoError(t, st.Set(t.Context(), "b", "2"))
	require.ElementsMatch(t, []string{"a", "b"}, st.Keys())
}
