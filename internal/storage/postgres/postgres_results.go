package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"set-platform/internal/storage"
)

// ResultPostgresStorage implements ResultStore for PostgreSQL
type ResultPostgresStorage struct {
	db *sql.DB
}

// NewResultPostgresStorage creates a new PostgreSQL result storage
func NewResultPostgresStorage(db *sql.DB) *ResultPostgresStorage {
	return &ResultPostgresStorage{db: db}
}

// CreateTables creates the results table if it doesn't exist
func (s *ResultPostgresStorage) CreateTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS game_results (
			game_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			winners INTEGER[] NOT NULL,
			scores INTEGER[] NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create game_results table: %w", err)
	}
	return nil
}

// SaveResult persists a finished game
func (s *ResultPostgresStorage) SaveResult(ctx context.Context, result *storage.GameResult) error {
	query := `
		INSERT INTO game_results (
			game_id, mode, winners, scores, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		result.GameID,
		result.Mode,
		pq.Array(result.Winners),
		pq.Array(result.Scores),
		result.StartedAt,
		result.FinishedAt,
	)

	return err
}

// GetResult retrieves a finished game by id
func (s *ResultPostgresStorage) GetResult(ctx context.Context, gameID string) (*storage.GameResult, error) {
	query := `
		SELECT game_id, mode, winners, scores, started_at, finished_at
		FROM game_results
		WHERE game_id = $1
	`

	result := &storage.GameResult{}
	var winners, scores pq.Int64Array

	err := s.db.QueryRowContext(ctx, query, gameID).Scan(
		&result.GameID,
		&result.Mode,
		&winners,
		&scores,
		&result.StartedAt,
		&result.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	result.Winners = toInts(winners)
	result.Scores = toInts(scores)
	return result, nil
}

// ListRecentResults returns the most recently finished games
func (s *ResultPostgresStorage) ListRecentResults(ctx context.Context, limit int) ([]*storage.GameResult, error) {
	query := `
		SELECT game_id, mode, winners, scores, started_at, finished_at
		FROM game_results
		ORDER BY finished_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*storage.GameResult
	for rows.Next() {
		result := &storage.GameResult{}
		var winners, scores pq.Int64Array
		if err := rows.Scan(
			&result.GameID,
			&result.Mode,
			&winners,
			&scores,
			&result.StartedAt,
			&result.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		result.Winners = toInts(winners)
		result.Scores = toInts(scores)
		results = append(results, result)
	}

	return results, rows.Err()
}

func toInts(values pq.Int64Array) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
