// Package postgres stores the snapshot as a JSONB document in Postgres.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS smartsplit_snapshots (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    document JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	db *sql.DB
}

// New creates the schema if needed. The caller owns db.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("migrating snapshot table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (ledger.Snapshot, error) {
	var doc []byte

	err := s.db.QueryRowContext(ctx, `SELECT document FROM smartsplit_snapshots WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Snapshot{}, ledger.NotFound("snapshot", "postgres")
	}

	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("querying snapshot: %w", err)
	}

	return snapshot.Decode(doc)
}

func (s *Store) Save(ctx context.Context, snap ledger.Snapshot) error {
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO smartsplit_snapshots (id, document, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}

	return nil
}
