// Package redis stores the snapshot under a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/snapshot"
)

// DefaultKey is used when New is given an empty key.
const DefaultKey = "smartsplit:snapshot"

type Store struct {
	client redis.UniversalClient
	key    string
}

// New stores the document at key. The caller owns client.
func New(client redis.UniversalClient, key string) *Store {
	if key == "" {
		key = DefaultKey
	}

	return &Store{client: client, key: key}
}

// NewClient connects to a single Redis server and checks that it answers.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return rdb, nil
}

func (s *Store) Load(ctx context.Context) (ledger.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.Snapshot{}, ledger.NotFound("snapshot", s.key)
	}

	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("get %s: %w", s.key, err)
	}

	return snapshot.Decode(data)
}

func (s *Store) Save(ctx context.Context, snap ledger.Snapshot) error {
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}

	return nil
}
