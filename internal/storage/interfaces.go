package storage

import (
	"context"
	"time"

	"set-platform/internal/events"
)

// AnalyticsRepository stores game-event analytics for offline querying
type AnalyticsRepository interface {
	// Create the analytics tables if they don't exist
	CreateTables(ctx context.Context) error

	// Write a batch of game events
	WriteEvents(ctx context.Context, batch []events.GameEvent) error

	// Per-player claim statistics over a time range
	GetClaimStats(ctx context.Context, start, end time.Time) ([]ClaimStats, error)

	// Close the underlying connection
	Close() error
}

// ClaimStats aggregates claim outcomes for one player
type ClaimStats struct {
	Player   int
	Accepted uint64
	Rejected uint64
}

// GameResult is the final standing of one finished game
type GameResult struct {
	GameID     string
	Mode       string
	Winners    []int
	Scores     []int
	StartedAt  time.Time
	FinishedAt time.Time
}

// ResultStore persists finished games for match history
type ResultStore interface {
	// Save a finished game
	SaveResult(ctx context.Context, result *GameResult) error

	// Get a finished game by id
	GetResult(ctx context.Context, gameID string) (*GameResult, error)

	// List the most recent finished games
	ListRecentResults(ctx context.Context, limit int) ([]*GameResult, error)
}
