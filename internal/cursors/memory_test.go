package cursors_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"threadlytics/internal/core"
	"threadlytics/internal/cursors"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	var store core.CursorStore = &cursors.Memory{}
	key := core.CursorKey("test")

	_, ok, err := store.Load(t.Context(), key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(t.Context(), key, 42))
	require.NoError(t, store.Save(t.Context(), key, 43))

	cursor, ok, err := store.Load(t.Context(), key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(43), cursor)

	_, ok, err = store.Load(t.Context(), core.CursorKey("other"))
	require.NoError(t, err)
	require.False(t, ok)
}
