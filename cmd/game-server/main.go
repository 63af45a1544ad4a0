package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"set-platform/internal/config"
	"set-platform/internal/events"
	"set-platform/internal/game"
	"set-platform/internal/storage"
	"set-platform/internal/storage/postgres"
	"set-platform/internal/ui"
	"set-platform/pkg/rng"
	"set-platform/pkg/setdeck"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	configPath := os.Getenv("SET_CONFIG")
	if configPath == "" {
		configPath = "./set.properties"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	judge, err := setdeck.NewJudge(cfg.FeatureSize, cfg.FeatureCount)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid feature geometry")
	}

	rngSystem, err := rng.NewSystem(rng.NewAuditLogger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize RNG")
	}

	hub := ui.NewHub(cfg.TableSize(), cfg.Players(), logger)
	defer hub.Close()

	sinks, closers := buildSinks(logger)
	pipeline := events.NewPipeline(events.DefaultPipelineConfig(), logger, sinks...)
	defer pipeline.Close()

	dealer, err := game.NewDealer(cfg, judge, rngSystem, hub, pipeline, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create dealer")
	}

	resultStore := buildResultStore(logger, &closers)
	defer func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}()

	router := gin.Default()
	router.GET("/ws", func(c *gin.Context) {
		hub.HandleWebSocket(c.Writer, c.Request)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/game/state", func(c *gin.Context) {
		scores := make([]int, len(dealer.Players()))
		for i, p := range dealer.Players() {
			scores[i] = p.Score()
		}
		c.JSON(200, gin.H{
			"game_id": dealer.GameID(),
			"mode":    cfg.Mode().String(),
			"cards":   dealer.Table().CountCards(),
			"scores":  scores,
		})
	})
	router.POST("/api/game/keypress", func(c *gin.Context) {
		var req struct {
			Player int `json:"player"`
			Slot   int `json:"slot"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request"})
			return
		}
		player := dealer.Player(req.Player)
		if player == nil {
			c.JSON(404, gin.H{"error": "player not found"})
			return
		}
		player.KeyPressed(req.Slot)
		c.JSON(202, gin.H{"status": "accepted"})
	})
	router.POST("/api/game/terminate", func(c *gin.Context) {
		dealer.Terminate()
		c.JSON(202, gin.H{"status": "terminating"})
	})

	port := os.Getenv("GAME_SERVER_PORT")
	if port == "" {
		port = "3002"
	}
	server := &http.Server{Addr: ":" + port, Handler: router}

	startedAt := time.Now()
	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		dealer.Run()
		saveResult(logger, resultStore, dealer, cfg, startedAt)
		return nil
	})

	group.Go(func() error {
		logger.Info().Str("port", port).Msg("game server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigChan:
			logger.Info().Msg("shutting down")
		case <-ctx.Done():
		}

		dealer.Terminate()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// envOr returns the value of the named environment variable, or def if unset.
func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// buildSinks wires the optional analytics sinks from the environment
func buildSinks(logger zerolog.Logger) ([]events.Sink, []func()) {
	var sinks []events.Sink
	var closers []func()

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "set-game-events"
		}
		producer, err := events.NewKafkaProducer(events.DefaultKafkaProducerConfig(strings.Split(brokers, ","), topic))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Kafka producer")
		}
		sinks = append(sinks, producer)
		closers = append(closers, func() { producer.Close() })
		logger.Info().Str("topic", topic).Msg("Kafka event sink enabled")
	}

	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		analytics, err := storage.NewClickHouseAnalytics(ctx, storage.ClickHouseConfig{
			Host:     host,
			Port:     9000,
			Database: envOr("CLICKHOUSE_DATABASE", "default"),
			Username: envOr("CLICKHOUSE_USER", "default"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to ClickHouse")
		}
		if err := analytics.CreateTables(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to create ClickHouse tables")
		}
		sinks = append(sinks, analytics)
		closers = append(closers, func() { analytics.Close() })
		logger.Info().Str("host", host).Msg("ClickHouse analytics sink enabled")
	}

	return sinks, closers
}

// buildResultStore wires the optional Postgres match-history store
func buildResultStore(logger zerolog.Logger, closers *[]func()) storage.ResultStore {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		return nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open Postgres")
	}
	*closers = append(*closers, func() { db.Close() })

	store := postgres.NewResultPostgresStorage(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.CreateTables(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create Postgres tables")
	}

	logger.Info().Msg("Postgres result store enabled")
	return store
}

// saveResult persists the final standings when a game finishes
func saveResult(logger zerolog.Logger, store storage.ResultStore, dealer *game.Dealer, cfg *config.GameConfig, startedAt time.Time) {
	if store == nil {
		return
	}

	scores := make([]int, len(dealer.Players()))
	maxScore := 0
	for i, p := range dealer.Players() {
		scores[i] = p.Score()
		if p.Score() > maxScore {
			maxScore = p.Score()
		}
	}
	var winners []int
	for i, s := range scores {
		if s == maxScore {
			winners = append(winners, i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.SaveResult(ctx, &storage.GameResult{
		GameID:     dealer.GameID(),
		Mode:       cfg.Mode().String(),
		Winners:    winners,
		Scores:     scores,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}); err != nil {
		logger.Error().Err(err).Msg("failed to save game result")
	}
}
