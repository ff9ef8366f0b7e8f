package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jdonosob/gaming-stream-project/internal/adapter/api"
	"github.com/jdonosob/gaming-stream-project/internal/adapter/api/handler"
	redisrepo "github.com/jdonosob/gaming-stream-project/internal/adapter/redis"
	"github.com/jdonosob/gaming-stream-project/internal/pkg/config"
	"github.com/jdonosob/gaming-stream-project/internal/pkg/logger"
	"github.com/jdonosob/gaming-stream-project/internal/usecase"
)

const liveTopN = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting query service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info("connected to redis")

	reader := redisrepo.NewQueryRepository(redisClient, log)
	query := usecase.NewQueryUseCase(reader)
	sse := handler.NewSSEBroker(ctx, reader, log, cfg.StreamInterval, liveTopN)

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminServer := &http.Server{Addr: cfg.AdminServerAddr, Handler: adminMux}
	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	queryServer := &http.Server{
		Addr:        cfg.QueryServerAddr,
		Handler:     api.NewRouter(log, query, sse),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		log.Info("starting query server", "addr", queryServer.Addr)
		if err := queryServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("query server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := queryServer.Shutdown(shutdownCtx); err != nil {
		log.Error("query server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
