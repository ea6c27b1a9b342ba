package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"

	"github.com/rcardoso/zapboard/internal/auth"
	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/internal/dashboard"
	"github.com/rcardoso/zapboard/internal/health"
	"github.com/rcardoso/zapboard/internal/ingest"
	"github.com/rcardoso/zapboard/internal/migrations"
	"github.com/rcardoso/zapboard/internal/repo"
	"github.com/rcardoso/zapboard/internal/scheduler"
	"github.com/rcardoso/zapboard/internal/seed"
	"github.com/rcardoso/zapboard/internal/server"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "zapboard",
		Usage: "Messaging-bot operations dashboard backend",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the ingestion and dashboard API server",
				Action: serveAction,
			},
			{
				Name:   "seed",
				Usage:  "Load the demo dataset into the database",
				Action: seedAction,
			},
			{
				Name:  "token",
				Usage: "Generate a JWT for dashboard API access",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "client",
						Value: "dashboard",
						Usage: "Client name embedded in the token",
					},
					&cli.DurationFlag{
						Name:  "duration",
						Value: 24 * time.Hour,
						Usage: "Token validity duration",
					},
				},
				Action: tokenAction,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveAction(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	logger := watermill.NewSlogLogger(slogger)

	injector := do.New()
	defer func() {
		if err := injector.Shutdown(); err != nil {
			logger.Error("Failed to shutdown DI container", err, nil)
		}
	}()

	if err := setupDependencies(injector, cfg, slogger, logger); err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}

	pool := do.MustInvoke[*pgxpool.Pool](injector)
	defer pool.Close()

	publisher := do.MustInvoke[message.Publisher](injector)
	subscriber := do.MustInvoke[message.Subscriber](injector)
	tracker := do.MustInvoke[*health.Tracker](injector)
	sched := do.MustInvoke[*scheduler.Scheduler](injector)
	srv := do.MustInvoke[*server.Server](injector)

	eventRouter, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return fmt.Errorf("failed to create event router: %w", err)
	}

	setupEventSubscribers(eventRouter, subscriber, publisher, tracker, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := eventRouter.Run(ctx); err != nil {
			logger.Error("Event router stopped with error", err, nil)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Start(ctx); err != nil {
			logger.Error("Scheduler stopped with error", err, nil)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(ctx); err != nil {
			logger.Error("HTTP server stopped with error", err, nil)
		}
	}()

	logger.Info("Zapboard started successfully", watermill.LogFields{
		"http_address": srv.GetAddress(),
		"auth_enabled": cfg.JWTSecret != "",
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", watermill.LogFields{
			"signal": sig.String(),
		})
	case <-ctx.Done():
		logger.Info("Context cancelled", nil)
	}

	logger.Info("Starting graceful shutdown", nil)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown completed", nil)
	case <-time.After(30 * time.Second):
		logger.Error("Shutdown timeout exceeded", nil, nil)
	}

	if err := eventRouter.Close(); err != nil {
		logger.Error("Failed to close event router", err, nil)
	}

	logger.Info("Zapboard stopped", nil)
	return nil
}

func seedAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	pool, err := connect(c.Context, cfg, slogger)
	if err != nil {
		return err
	}
	defer pool.Close()

	return seed.Run(c.Context, repo.New(pool), cfg, slogger)
}

func tokenAction(c *cli.Context) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	manager := auth.NewJWTManager(secret)
	token, err := manager.GenerateToken(c.String("client"), c.Duration("duration"))
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// connect runs migrations and opens the application pool
func connect(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (*pgxpool.Pool, error) {
	pgxConfig, err := pgx.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Create database/sql connection for migrations
	sqlDB := stdlib.OpenDB(*pgxConfig)

	if err := migrations.Run(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slogger.Info("Database migrations completed successfully")

	if err := sqlDB.Close(); err != nil {
		slogger.Error("Failed to close sql connection after migrations", slog.String("error", err.Error()))
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slogger.Info("Connected to database")
	return pool, nil
}

// setupDependencies registers all dependencies in DI container
func setupDependencies(injector *do.Injector, cfg *config.Config, slogger *slog.Logger, logger watermill.LoggerAdapter) error {
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, slogger)
	do.ProvideValue(injector, logger)

	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		slogger := do.MustInvoke[*slog.Logger](i)
		return connect(context.Background(), cfg, slogger)
	})

	do.Provide(injector, func(i *do.Injector) (*repo.Repository, error) {
		pool := do.MustInvoke[*pgxpool.Pool](i)
		return repo.New(pool), nil
	})

	// Register pub/sub - both publisher and subscriber share one channel
	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[watermill.LoggerAdapter](i)
		return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (message.Publisher, error) {
		pubSub := do.MustInvoke[*gochannel.GoChannel](i)
		return pubSub, nil
	})

	do.Provide(injector, func(i *do.Injector) (message.Subscriber, error) {
		pubSub := do.MustInvoke[*gochannel.GoChannel](i)
		return pubSub, nil
	})

	do.Provide(injector, func(i *do.Injector) (*ingest.Service, error) {
		repository := do.MustInvoke[*repo.Repository](i)
		cfg := do.MustInvoke[*config.Config](i)
		slogger := do.MustInvoke[*slog.Logger](i)
		return ingest.New(repository, cfg, slogger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*health.Tracker, error) {
		repository := do.MustInvoke[*repo.Repository](i)
		cfg := do.MustInvoke[*config.Config](i)
		slogger := do.MustInvoke[*slog.Logger](i)
		return health.New(repository, cfg, slogger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*dashboard.Service, error) {
		repository := do.MustInvoke[*repo.Repository](i)
		tracker := do.MustInvoke[*health.Tracker](i)
		cfg := do.MustInvoke[*config.Config](i)
		slogger := do.MustInvoke[*slog.Logger](i)
		return dashboard.New(repository, tracker, cfg, slogger), nil
	})

	scheduler.RegisterDI(injector)

	do.Provide(injector, func(i *do.Injector) (*server.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		slogger := do.MustInvoke[*slog.Logger](i)
		ingestSvc := do.MustInvoke[*ingest.Service](i)
		dashboardSvc := do.MustInvoke[*dashboard.Service](i)
		tracker := do.MustInvoke[*health.Tracker](i)
		repository := do.MustInvoke[*repo.Repository](i)
		publisher := do.MustInvoke[message.Publisher](i)

		var jwtManager *auth.JWTManager
		if cfg.JWTSecret != "" {
			jwtManager = auth.NewJWTManager(cfg.JWTSecret)
		}

		return server.New(cfg, slogger, ingestSvc, dashboardSvc, tracker, repository, publisher, jwtManager), nil
	})

	return nil
}

// setupEventSubscribers wires the health tracker to the pipeline signals
func setupEventSubscribers(router *message.Router, subscriber message.Subscriber, publisher message.Publisher, tracker *health.Tracker, logger watermill.LoggerAdapter) {
	router.AddHandler(
		"pipeline_success_handler",
		health.TopicPipelineSuccess,
		subscriber,
		health.TopicPipelineSuccess,
		publisher,
		func(msg *message.Message) ([]*message.Message, error) {
			err := tracker.HandleSuccessEvent(msg)
			return nil, err
		},
	)

	router.AddHandler(
		"pipeline_failure_handler",
		health.TopicPipelineFailure,
		subscriber,
		health.TopicPipelineFailure,
		publisher,
		func(msg *message.Message) ([]*message.Message, error) {
			err := tracker.HandleFailureEvent(msg)
			return nil, err
		},
	)

	router.AddHandler(
		"midnight_handler",
		health.TopicMidnight,
		subscriber,
		health.TopicMidnight,
		publisher,
		func(msg *message.Message) ([]*message.Message, error) {
			err := tracker.HandleMidnightEvent(msg)
			return nil, err
		},
	)

	logger.Info("Event subscribers configured", watermill.LogFields{
		"handlers": []string{health.TopicPipelineSuccess, health.TopicPipelineFailure, health.TopicMidnight},
	})
}
