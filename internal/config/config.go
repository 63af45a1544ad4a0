package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode is the round timing mode, derived from the turn timeout
type Mode int

const (
	// ModeCountdown runs fixed-length rounds with a visible countdown
	ModeCountdown Mode = iota
	// ModeFreePlay reshuffles only when the table holds no legal set
	ModeFreePlay
	// ModeElapsed shows time since cards were last dealt
	ModeElapsed
)

func (m Mode) String() string {
	switch m {
	case ModeCountdown:
		return "countdown"
	case ModeFreePlay:
		return "free_play"
	case ModeElapsed:
		return "elapsed"
	default:
		return "unknown"
	}
}

// GameConfig holds all game parameters, loaded from a properties file
type GameConfig struct {
	Rows                     int
	Columns                  int
	FeatureSize              int
	FeatureCount             int
	HumanPlayers             int
	ComputerPlayers          int
	TurnTimeoutMillis        int64
	TurnTimeoutWarningMillis int64
	PointFreezeMillis        int64
	PenaltyFreezeMillis      int64
	TableDelayMillis         int64
	Hints                    bool
	PlayerKeys               []string
}

// Default returns the configuration used when no properties file is present
func Default() *GameConfig {
	return &GameConfig{
		Rows:                     3,
		Columns:                  4,
		FeatureSize:              3,
		FeatureCount:             4,
		HumanPlayers:             2,
		ComputerPlayers:          2,
		TurnTimeoutMillis:        60000,
		TurnTimeoutWarningMillis: 5000,
		PointFreezeMillis:        1000,
		PenaltyFreezeMillis:      3000,
		TableDelayMillis:         100,
		Hints:                    false,
	}
}

// Load reads game configuration from a Java-style properties file. A missing
// file yields defaults; a malformed file is an error.
func Load(path string) (*GameConfig, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")

	v.SetDefault("Rows", cfg.Rows)
	v.SetDefault("Columns", cfg.Columns)
	v.SetDefault("FeatureSize", cfg.FeatureSize)
	v.SetDefault("FeatureCount", cfg.FeatureCount)
	v.SetDefault("HumanPlayers", cfg.HumanPlayers)
	v.SetDefault("ComputerPlayers", cfg.ComputerPlayers)
	v.SetDefault("TurnTimeoutSeconds", cfg.TurnTimeoutMillis/1000)
	v.SetDefault("TurnTimeoutWarningSeconds", cfg.TurnTimeoutWarningMillis/1000)
	v.SetDefault("PointFreezeSeconds", cfg.PointFreezeMillis/1000)
	v.SetDefault("PenaltyFreezeSeconds", cfg.PenaltyFreezeMillis/1000)
	v.SetDefault("TableDelaySeconds", 0)
	v.SetDefault("TableDelayMillies", cfg.TableDelayMillis)
	v.SetDefault("Hints", cfg.Hints)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.Rows = v.GetInt("Rows")
	cfg.Columns = v.GetInt("Columns")
	cfg.FeatureSize = v.GetInt("FeatureSize")
	cfg.FeatureCount = v.GetInt("FeatureCount")
	cfg.HumanPlayers = v.GetInt("HumanPlayers")
	cfg.ComputerPlayers = v.GetInt("ComputerPlayers")
	cfg.TurnTimeoutMillis = v.GetInt64("TurnTimeoutSeconds") * 1000
	cfg.TurnTimeoutWarningMillis = v.GetInt64("TurnTimeoutWarningSeconds") * 1000
	cfg.PointFreezeMillis = v.GetInt64("PointFreezeSeconds") * 1000
	cfg.PenaltyFreezeMillis = v.GetInt64("PenaltyFreezeSeconds") * 1000
	if s := v.GetInt64("TableDelaySeconds"); s != 0 {
		cfg.TableDelayMillis = s * 1000
	} else {
		cfg.TableDelayMillis = v.GetInt64("TableDelayMillies")
	}
	cfg.Hints = v.GetBool("Hints")

	for i := 0; ; i++ {
		key := fmt.Sprintf("PlayerKeys%d", i)
		if !v.IsSet(key) {
			break
		}
		cfg.PlayerKeys = append(cfg.PlayerKeys, strings.TrimSpace(v.GetString(key)))
	}

	return cfg, nil
}

// TableSize returns rows*columns, the number of slots on the table
func (c *GameConfig) TableSize() int {
	return c.Rows * c.Columns
}

// DeckSize returns featureSize^featureCount, the number of distinct cards
func (c *GameConfig) DeckSize() int {
	size := 1
	for i := 0; i < c.FeatureCount; i++ {
		size *= c.FeatureSize
	}
	return size
}

// Players returns the total number of seats
func (c *GameConfig) Players() int {
	return c.HumanPlayers + c.ComputerPlayers
}

// Mode derives the timing mode from the configured turn timeout
func (c *GameConfig) Mode() Mode {
	switch {
	case c.TurnTimeoutMillis > 0:
		return ModeCountdown
	case c.TurnTimeoutMillis < 0:
		return ModeFreePlay
	default:
		return ModeElapsed
	}
}

// TurnTimeout returns the turn timeout as a duration
func (c *GameConfig) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutMillis) * time.Millisecond
}

// Validate checks that the configuration describes a playable game
func (c *GameConfig) Validate() error {
	if c.Rows < 1 || c.Columns < 1 {
		return fmt.Errorf("table must have at least one slot, got %dx%d", c.Rows, c.Columns)
	}
	if c.FeatureSize < 2 {
		return fmt.Errorf("feature size must be at least 2, got %d", c.FeatureSize)
	}
	if c.FeatureCount < 1 {
		return fmt.Errorf("feature count must be at least 1, got %d", c.FeatureCount)
	}
	if c.Players() < 1 {
		return fmt.Errorf("at least one player required")
	}
	if c.TableSize() < c.FeatureSize {
		return fmt.Errorf("table size %d cannot hold a %d-card set", c.TableSize(), c.FeatureSize)
	}
	return nil
}
