package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/foxseedlab/soapscribe/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const (
	connectTimeout  = 15 * time.Second
	maxPoolConns    = 10
	maxConnIdleTime = 5 * time.Minute
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return Open(cfg.DatabaseURL)
	})
}

// Open connects, verifies the connection and applies the schema.
func Open(databaseURL string) (*PostgresRepository, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = maxPoolConns
	poolCfg.MaxConnIdleTime = maxConnIdleTime

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigration(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	slog.Info("database ready", "max_conns", poolCfg.MaxConns, "host", poolCfg.ConnConfig.Host)
	return NewPostgresRepository(pool), nil
}
