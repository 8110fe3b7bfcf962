package episodes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// ddlEpisodes creates the journal table. Idempotent, so it can run on every
// startup without coordination.
const ddlEpisodes = `
CREATE TABLE IF NOT EXISTS talking_episodes (
    id          BIGSERIAL    PRIMARY KEY,
    mode        TEXT         NOT NULL,
    started_at  TIMESTAMPTZ  NOT NULL,
    ended_at    TIMESTAMPTZ  NOT NULL,
    frames      BIGINT       NOT NULL DEFAULT 0,
    bytes       BIGINT       NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_talking_episodes_started_at
    ON talking_episodes (started_at);
`

// PostgresStore is a PostgreSQL-backed episode journal sharing a single
// [pgxpool.Pool]. All methods are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and ensures the journal
// table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("episodes: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("episodes: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, ddlEpisodes); err != nil {
		pool.Close()
		return nil, fmt.Errorf("episodes: migrate: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Record implements [Store].
func (s *PostgresStore) Record(ctx context.Context, e Episode) error {
	const q = `
		INSERT INTO talking_episodes (mode, started_at, ended_at, frames, bytes)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, q, e.Mode, e.StartedAt, e.EndedAt, e.Frames, e.Bytes)
	if err != nil {
		return fmt.Errorf("episodes: record: %w", err)
	}
	return nil
}

// Recent implements [Store]. It returns up to limit episodes ordered newest
// first. A non-positive limit defaults to 100.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
		SELECT mode, started_at, ended_at, frames, bytes
		FROM   talking_episodes
		ORDER  BY started_at DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("episodes: recent: %w", err)
	}
	episodes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Episode, error) {
		var e Episode
		err := row.Scan(&e.Mode, &e.StartedAt, &e.EndedAt, &e.Frames, &e.Bytes)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("episodes: scan: %w", err)
	}
	return episodes, nil
}

// Ping probes the database, for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements [Store]. It releases all pooled connections.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
