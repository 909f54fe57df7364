package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/pkg/retry"
)

// PoolConfig controls connection pool sizing and the startup connect retry.
type PoolConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
	Connect  retry.Config
}

// NewPool opens a pgx pool and pings it, retrying with backoff while the
// database is still starting.
func NewPool(ctx context.Context, pc PoolConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(pc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = pc.MaxConns
	cfg.MinConns = pc.MinConns
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	connect := pc.Connect
	if connect.MaxAttempts == 0 {
		connect = retry.DefaultConfig()
	}
	err = retry.DoWithLog(ctx, connect, "postgres", func() error {
		return pool.Ping(ctx)
	}, func(attempt int, err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("next", next).Msg("database not ready")
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
