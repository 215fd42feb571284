package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/snapshot/memory"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	_, err := store.Load(ctx)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))

	snap := ledger.NewSnapshot()
	snap.Users = append(snap.Users, ledger.User{ID: "A", Name: "Alice"})

	require.NoError(t, store.Save(ctx, snap))

	// Later changes to the caller's snapshot do not leak into the store.
	snap.Users[0].Name = "Mallory"

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Users[0].Name)
	assert.Equal(t, 1, store.Saves())
}
