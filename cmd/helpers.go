// File: cmd/helpers.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/store"
)

// openMetricStore builds the metric store selected by store.backend.
// The returned cleanup releases the Postgres pool when one was opened.
func openMetricStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.MetricStore, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.Postgres.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pg, err := store.NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		fs, err := store.NewFS(cfg.Store.Root, logger)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}

// openFSStore opens the filesystem store directly for the operations only
// it supports (security snapshots, pruning, archival).
func openFSStore(cfg *config.Config, logger *zap.Logger) (*store.FS, error) {
	if cfg.Store.Backend == "postgres" {
		return nil, fmt.Errorf("this command requires the filesystem store backend")
	}
	return store.NewFS(cfg.Store.Root, logger)
}
