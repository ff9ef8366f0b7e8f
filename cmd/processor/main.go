package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jdonosob/gaming-stream-project/internal/adapter/journal"
	kafkaadapter "github.com/jdonosob/gaming-stream-project/internal/adapter/kafka"
	"github.com/jdonosob/gaming-stream-project/internal/adapter/metrics"
	"github.com/jdonosob/gaming-stream-project/internal/adapter/postgres"
	redisrepo "github.com/jdonosob/gaming-stream-project/internal/adapter/redis"
	"github.com/jdonosob/gaming-stream-project/internal/domain"
	"github.com/jdonosob/gaming-stream-project/internal/pkg/config"
	"github.com/jdonosob/gaming-stream-project/internal/pkg/logger"
	"github.com/jdonosob/gaming-stream-project/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting leaderboard processor")

	m := metrics.NewProcessorMetrics()

	// --- Admin and metrics server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	adminServer := &http.Server{Addr: cfg.AdminServerAddr, Handler: adminMux}
	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful shutdown context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Redis (aggregate store + dedup ledger) ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info("connected to redis")

	store := redisrepo.NewAggregateStore(redisClient, log)
	ledger, err := redisrepo.NewDedupLedger(redisClient, log, cfg.DedupRetention)
	if err != nil {
		log.Error("failed to create dedup ledger", "error", err)
		os.Exit(1)
	}
	reader := redisrepo.NewQueryRepository(redisClient, log)

	// --- Skip journal: PostgreSQL when configured, logging otherwise ---
	var skipJournal domain.SkipJournal = journal.NewStdout(log)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres connection", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		skipJournal, err = postgres.NewSkipJournal(ctx, db, log)
		if err != nil {
			log.Error("failed to initialize skip journal", "error", err)
			os.Exit(1)
		}
		log.Info("connected to postgres, durable skip journal enabled")
	}

	// --- Kafka consumer (one consumer-group member per instance) ---
	consumer := kafkaadapter.NewConsumer(kafkaadapter.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		GroupID:     cfg.ConsumerGroup,
		PollTimeout: cfg.PollTimeout,
	}, log)
	defer consumer.Close()
	log.Info("joined consumer group", "group", cfg.ConsumerGroup, "topic", cfg.KafkaTopic)

	// --- Engine ---
	handlers := usecase.NewHandlers(store, log)
	router := usecase.NewRouter(handlers, log)
	loop := usecase.NewIngestLoop(consumer, ledger, router, skipJournal, reader, m, log,
		usecase.WithBatchSize(cfg.BatchSize),
		usecase.WithRetryBackoff(cfg.RetryBackoff),
		usecase.WithSnapshotEvery(cfg.SnapshotEvery),
	)

	if err := loop.Run(ctx); err != nil {
		log.Error("ingestion loop exited with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("processor shut down gracefully")
}
