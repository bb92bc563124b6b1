package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/EcosystemNetwork/Conductor/internal/config"
	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/execution"
	"github.com/EcosystemNetwork/Conductor/internal/ledger"
	"github.com/EcosystemNetwork/Conductor/internal/repository"
	"github.com/EcosystemNetwork/Conductor/internal/services"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv(config.Env))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ranking, err := services.ParseRankingStrategy(cfg.Engine.Ranking)
	if err != nil {
		slog.Error("Invalid ranking strategy", "error", err)
		os.Exit(1)
	}

	// Event publishers: the log publisher is always on.
	publishers := events.Multi{events.LogPublisher{Logger: logger}}
	if cfg.Redis.Addr != "" {
		p, err := events.NewRedisPublisher(ctx, events.RedisConfig{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			slog.Error("Redis publisher unavailable", "error", err)
			os.Exit(1)
		}
		publishers = append(publishers, p)
		slog.Info("Publishing events to Redis", "addr", cfg.Redis.Addr)
	}
	if cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange})
		if err != nil {
			slog.Error("AMQP publisher unavailable", "error", err)
			os.Exit(1)
		}
		publishers = append(publishers, p)
		slog.Info("Publishing events to RabbitMQ")
	}
	defer publishers.Close()

	// Archive and settlement need PostgreSQL.
	var archiver services.Archiver
	var settler ledger.Settler = ledger.NopSettler{}
	var riverClient *river.Client[pgx.Tx]
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Unable to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			slog.Error("Cannot reach PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to PostgreSQL")

		archive := repository.NewArchiveRepo(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			slog.Error("Archive schema setup failed", "error", err)
			os.Exit(1)
		}
		archiver = archive

		if cfg.Settlement.WebhookURL != "" {
			riverClient, err = newSettlementQueue(ctx, pool, archive, cfg.Settlement.MaxWorkers, logger)
			if err != nil {
				slog.Error("Settlement queue setup failed", "error", err)
				os.Exit(1)
			}
			settler, err = ledger.NewQueueSettler(func(ctx context.Context, args execution.SettlePayoutArgs) error {
				_, err := riverClient.Insert(ctx, args, nil)
				return err
			}, cfg.Settlement.WebhookURL)
			if err != nil {
				slog.Error("Settlement queue setup failed", "error", err)
				os.Exit(1)
			}
		}
	} else {
		slog.Warn("DATABASE_URL not set: archive and payout settlement disabled")
	}

	st := store.New()
	engine := services.NewEngine(st, services.EngineConfig{
		Ranking: ranking,
		Events:  publishers,
		Settler: settler,
		Archive: archiver,
		Logger:  logger,
	})
	keys := services.NewAPIKeyService(st, nil)

	handler, err := buildRouter(cfg, engine, keys, logger)
	if err != nil {
		slog.Error("Failed to build router", "error", err)
		os.Exit(1)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
	}).Handler(handler)

	if riverClient != nil {
		if err := riverClient.Start(ctx); err != nil {
			slog.Error("River client failed to start", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				slog.Error("River client stop", "error", err)
			}
		}()
	}

	go engine.Watchdog(cfg.WatchdogInterval()).Run(ctx)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr, "ranking", ranking, "origins", strings.Join(cfg.AllowedOrigins, ","))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

// newSettlementQueue migrates river's tables and returns a client running the
// settlement worker. The client is not started.
func newSettlementQueue(ctx context.Context, pool *pgxpool.Pool, rec execution.SettlementRecorder, maxWorkers int, logger *slog.Logger) (*river.Client[pgx.Tx], error) {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, err
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, err
	}
	slog.Info("River migrations applied")

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewSettlePayoutWorker(rec))

	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
}
