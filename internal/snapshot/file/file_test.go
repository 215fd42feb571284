package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/snapshot/file"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "ledger.json")
	store := file.New(path)

	_, err := store.Load(ctx)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))

	snap := ledger.NewSnapshot()
	snap.CurrentUser = "A"
	snap.Users = append(snap.Users, ledger.User{ID: "A", Name: "Alice"})

	require.NoError(t, store.Save(ctx, snap))

	snap.CurrentUser = "B"
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", got.CurrentUser)
	assert.Len(t, got.Users, 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := file.New(path).Load(context.Background())

	require.Error(t, err)
	assert.False(t, errors.Is(err, ledger.ErrNotFound))
}
