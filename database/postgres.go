package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Postgres holds the pgx pool and the database/sql view of it used by the
// repositories and the migrator.
type Postgres struct {
	Pool *pgxpool.Pool
	DB   *sql.DB
}

// ConnectPostgres opens a pgx pool and pings it.
func ConnectPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	logger.Info("Connected to PostgreSQL successfully", zap.String("host", cfg.ConnConfig.Host))
	return &Postgres{Pool: pool, DB: stdlib.OpenDBFromPool(pool)}, nil
}

func (p *Postgres) Close() {
	if p.DB != nil {
		_ = p.DB.Close()
	}
	if p.Pool != nil {
		p.Pool.Close()
	}
}
