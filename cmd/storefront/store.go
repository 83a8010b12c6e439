package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/food-storefront/internal/config"
	"github.com/dmehra2102/food-storefront/internal/realtime"
	"github.com/dmehra2102/food-storefront/internal/realtime/memory"
	rtpg "github.com/dmehra2102/food-storefront/internal/realtime/postgres"
	"github.com/dmehra2102/food-storefront/internal/realtime/redisstore"
)

// backend is the selected realtime store plus what else it opened.
type backend struct {
	store realtime.Store
	pool  *pgxpool.Pool
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger, rdb *redis.Client) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &backend{store: redisstore.New(log, rdb), close: func() {}}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PGURL)
		if err != nil {
			return nil, fmt.Errorf("pg connect: %w", err)
		}
		if err := rtpg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("pg schema: %w", err)
		}
		return &backend{store: rtpg.NewStore(log, pool), pool: pool, close: pool.Close}, nil

	default:
		s := memory.New(log)
		return &backend{store: s, close: s.Close}, nil
	}
}
