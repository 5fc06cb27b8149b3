// Package repository persists finished games and the notification journal in
// PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/ethduel/duel-server-go/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps the connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB opens a pool and verifies connectivity.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, logger: logger}, nil
}

// Stats returns pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

// Close closes the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS finished_games (
		game_id     TEXT PRIMARY KEY,
		player1     TEXT NOT NULL,
		player2     TEXT NOT NULL,
		winner      TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		final_seq   BIGINT NOT NULL,
		checksum    TEXT NOT NULL,
		state       JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		started_at  TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS finished_games_winner_idx ON finished_games (winner)`,
	`CREATE TABLE IF NOT EXISTS game_notifications (
		game_id     TEXT NOT NULL,
		seq         BIGINT NOT NULL,
		kind        TEXT NOT NULL,
		actor       TEXT NOT NULL DEFAULT '',
		payload     JSONB NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (game_id, seq, kind)
	)`,
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i, err)
		}
	}
	db.logger.Info("database schema up to date", zap.Int("statements", len(schema)))
	return nil
}
