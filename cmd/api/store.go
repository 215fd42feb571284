package main

import (
	"context"
	"fmt"

	"github.com/kinshukkush/smartsplit/internal/config"
	"github.com/kinshukkush/smartsplit/internal/database"
	"github.com/kinshukkush/smartsplit/internal/engine"
	"github.com/kinshukkush/smartsplit/internal/snapshot/file"
	"github.com/kinshukkush/smartsplit/internal/snapshot/memory"
	"github.com/kinshukkush/smartsplit/internal/snapshot/postgres"
	redisStore "github.com/kinshukkush/smartsplit/internal/snapshot/redis"
	"github.com/kinshukkush/smartsplit/internal/snapshot/sqlite"
)

// openStore builds the repository named by the config. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg *config.Config) (engine.Repository, func(), error) {
	noop := func() {}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.New(), noop, nil

	case config.DriverFile:
		return file.New(cfg.Store.Path), noop, nil

	case config.DriverSQLite:
		store, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil

	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.ConnectionString(), database.Pool{})
		if err != nil {
			return nil, nil, err
		}

		store, err := postgres.New(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	case config.DriverRedis:
		client, err := redisStore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}

		return redisStore.New(client, cfg.Redis.Key), func() { _ = client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
