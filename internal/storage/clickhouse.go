package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"set-platform/internal/events"
)

// ClickHouseConfig holds ClickHouse connection configuration
type ClickHouseConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Secure       bool          `yaml:"secure"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnTimeout  time.Duration `yaml:"conn_timeout"`
}

// ClickHouseAnalytics implements AnalyticsRepository for ClickHouse
type ClickHouseAnalytics struct {
	db clickhouse.Conn
}

// NewClickHouseAnalytics creates a new ClickHouse analytics repository
func NewClickHouseAnalytics(ctx context.Context, config ClickHouseConfig) (*ClickHouseAnalytics, error) {
	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Host, config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	}
	if config.Secure {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseAnalytics{db: conn}, nil
}

// CreateTables creates the analytics tables if they don't exist
func (ch *ClickHouseAnalytics) CreateTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS game_events (
		event_id String,
		event_type String,
		game_id String,
		player Int32,
		slots Array(Int32),
		cards Array(Int32),
		score Int32,
		winners Array(Int32),
		timestamp DateTime64(3)
	) ENGINE = ReplacingMergeTree(timestamp)
	ORDER BY (game_id, event_id, timestamp)`

	if err := ch.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create game_events table: %w", err)
	}
	return nil
}

// WriteEvents stores a batch of game events
func (ch *ClickHouseAnalytics) WriteEvents(ctx context.Context, batch []events.GameEvent) error {
	if len(batch) == 0 {
		return nil
	}

	insert, err := ch.db.PrepareBatch(ctx, "INSERT INTO game_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, event := range batch {
		if err := insert.Append(
			event.ID,
			event.Type,
			event.GameID,
			int32(event.Player),
			toInt32(event.Slots),
			toInt32(event.Cards),
			int32(event.Score),
			toInt32(event.Winners),
			event.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	if err := insert.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// GetClaimStats aggregates claim outcomes per player over a time range
func (ch *ClickHouseAnalytics) GetClaimStats(ctx context.Context, start, end time.Time) ([]ClaimStats, error) {
	query := `SELECT
		player,
		countIf(event_type = 'claim_accepted') AS accepted,
		countIf(event_type = 'claim_rejected') AS rejected
	FROM game_events
	WHERE timestamp BETWEEN ? AND ? AND player >= 0
	GROUP BY player
	ORDER BY player`

	rows, err := ch.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim stats: %w", err)
	}
	defer rows.Close()

	var stats []ClaimStats
	for rows.Next() {
		var s ClaimStats
		var player int32
		if err := rows.Scan(&player, &s.Accepted, &s.Rejected); err != nil {
			return nil, fmt.Errorf("failed to scan claim stats: %w", err)
		}
		s.Player = int(player)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Close closes the underlying connection
func (ch *ClickHouseAnalytics) Close() error {
	return ch.db.Close()
}

func toInt32(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}
