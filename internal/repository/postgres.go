package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS match_results (
    match_id      TEXT PRIMARY KEY,
    winner_id     TEXT NOT NULL,
    winner_name   TEXT NOT NULL,
    loser_id      TEXT NOT NULL,
    loser_name    TEXT NOT NULL,
    reason        TEXT NOT NULL,
    turns         INTEGER NOT NULL,
    single_player BOOLEAN NOT NULL DEFAULT FALSE,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_results_ended_at ON match_results (ended_at DESC);
`

const pgUniqueViolation = "23505"

// PostgresStore persists results in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects to dsn, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	logger.Info("postgres result store ready")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Record inserts one result.
func (s *PostgresStore) Record(ctx context.Context, result MatchResult) error {
	if err := result.validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_results (
		   match_id, winner_id, winner_name, loser_id, loser_name,
		   reason, turns, single_player, started_at, ended_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.MatchID,
		result.WinnerID,
		result.WinnerName,
		result.LoserID,
		result.LoserName,
		result.Reason,
		result.Turns,
		result.SinglePlayer,
		result.StartedAt.UTC(),
		result.EndedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("record match result: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]MatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT match_id, winner_id, winner_name, loser_id, loser_name,
		        reason, turns, single_player, started_at, ended_at
		   FROM match_results
		  ORDER BY ended_at DESC, match_id
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	var out []MatchResult
	for rows.Next() {
		var r MatchResult
		if err := rows.Scan(&r.MatchID, &r.WinnerID, &r.WinnerName, &r.LoserID, &r.LoserName,
			&r.Reason, &r.Turns, &r.SinglePlayer, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	return out, nil
}

// Standing tallies name's wins and losses.
func (s *PostgresStore) Standing(ctx context.Context, name string) (Standing, error) {
	st := Standing{Name: name}
	err := s.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE winner_name = $1),
		   COUNT(*) FILTER (WHERE loser_name = $1)
		 FROM match_results`, name).Scan(&st.Wins, &st.Losses)
	if err != nil {
		return Standing{}, fmt.Errorf("standing for %s: %w", name, err)
	}
	return st, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ ResultStore = (*PostgresStore)(nil)
