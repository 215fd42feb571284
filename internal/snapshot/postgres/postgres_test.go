package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinshukkush/smartsplit/internal/database"
	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/snapshot/postgres"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("SMARTSPLIT_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("SMARTSPLIT_TEST_POSTGRES not set")
	}

	ctx := context.Background()

	db, err := database.New(ctx, dsn, database.Pool{})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS smartsplit_snapshots`)
	require.NoError(t, err)

	store, err := postgres.New(ctx, db)
	require.NoError(t, err)

	_, err = store.Load(ctx)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))

	snap := ledger.NewSnapshot()
	snap.Users = []ledger.User{{ID: "A", Name: "Zoë", Active: true}}
	require.NoError(t, store.Save(ctx, snap))
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Users, 1)
	assert.Equal(t, "Zoë", got.Users[0].Name)
}
