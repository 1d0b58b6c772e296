package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var (
	newPool  = pgxpool.NewWithConfig
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres opens and pings a connection pool for the archive.
func InitPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	const op = "db.InitPostgres"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := newPool(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	if err := pingPool(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	slog.Info("connected to postgres", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)
	return pool, nil
}
