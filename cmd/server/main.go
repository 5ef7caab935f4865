package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/edition"
	"github.com/gwent-leaderboard/internal/handler"
	"github.com/gwent-leaderboard/internal/kafka"
	"github.com/gwent-leaderboard/internal/memstore"
	"github.com/gwent-leaderboard/internal/metrics"
	"github.com/gwent-leaderboard/internal/postgres"
	"github.com/gwent-leaderboard/internal/redis"
	"github.com/gwent-leaderboard/internal/service"
	"github.com/gwent-leaderboard/internal/websocket"
	"github.com/gwent-leaderboard/internal/worker"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

// changeFeed carries change events between writers and refreshers
type changeFeed interface {
	service.Notifier
	Listen(ctx context.Context, fn func(domain.ChangeEvent)) error
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; values it sets feed ${VAR} expansion in the config file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := edition.FromConfig(cfg.Editions)
	if err != nil {
		return fmt.Errorf("loading edition metadata: %w", err)
	}

	mode, err := domain.ParseUpsertMode(cfg.Leaderboard.UpsertMode)
	if err != nil {
		return fmt.Errorf("loading leaderboard config: %w", err)
	}
	ordering, err := domain.ParseOrdering(cfg.Leaderboard.Ordering)
	if err != nil {
		return fmt.Errorf("loading leaderboard config: %w", err)
	}
	loc, err := cfg.Leaderboard.Location()
	if err != nil {
		return err
	}
	defaultEdition, ok := domain.ParseEdition(cfg.Leaderboard.DefaultEdition)
	if !ok {
		return fmt.Errorf("default edition %q: %w", cfg.Leaderboard.DefaultEdition, domain.ErrUnknownEdition)
	}

	// Initialize the player store
	var store service.PlayerStore
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory player store; data is lost on restart")
		store = memstore.New()
	case config.StoreDriverPostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err := postgres.NewRepository(ctx, &cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		defer repo.Close()
		logger.Info("connected to PostgreSQL")

		// Run database migrations
		if err := repo.RunMigrations(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		store = repo
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	// Initialize the change feed
	var feed changeFeed
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		notifier, err := redis.NewNotifier(ctx, &cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		defer notifier.Close()
		logger.Info("connected to Redis")
		feed = notifier
	} else {
		feed = redis.NewLocalNotifier()
	}

	// Initialize metrics
	registerer := prometheus.NewRegistry()
	registerer.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metricsService := metrics.NewService(registerer)

	// Initialize services
	playerService := service.NewPlayerService(store, registry, service.Options{
		Mode:     mode,
		Ordering: ordering,
		Location: loc,
		Notifier: feed,
		Recorder: metricsService,
	}, logger)

	// Initialize WebSocket hub and the refresher that feeds it
	wsHub := websocket.NewHub(logger)
	refreshWorker := worker.NewRefreshWorker(playerService, wsHub, metricsService, &cfg.Refresh, logger)
	wsHub.OnSubscribe(func(topic websocket.Topic) {
		_ = refreshWorker.RefreshTopic(ctx, topic)
	})
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	go func() {
		err := feed.Listen(ctx, func(event domain.ChangeEvent) {
			refreshWorker.RefreshEdition(ctx, event.Edition)
		})
		if err != nil {
			logger.Error("change feed stopped", "error", err)
		}
	}()

	if cfg.Refresh.Enabled {
		if err := refreshWorker.Start(ctx); err != nil {
			return fmt.Errorf("starting refresh worker: %w", err)
		}
	}

	// Initialize Kafka consumer for bulk player ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, playerService, metricsService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		} else {
			logger.Info("Kafka consumer started successfully")
		}
	}

	httpHandler := handler.NewHandler(playerService, handler.Options{
		Hub:            wsHub,
		Metrics:        metricsService,
		MetricsHandler: metrics.NewHandler(registerer),
		DefaultEdition: defaultEdition,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			"port", cfg.Server.Port,
			"store", cfg.Store.Driver,
			"upsert_mode", mode,
			"ordering", ordering.Strings(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("serving HTTP: %w", err)
	}

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop refresh worker
	if err := refreshWorker.Stop(); err != nil {
		logger.Error("failed to stop refresh worker", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
