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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/record-api/internal/adapter/api"
	"github.com/user/record-api/internal/adapter/cache"
	"github.com/user/record-api/internal/adapter/metrics"
	"github.com/user/record-api/internal/adapter/ratelimit"
	"github.com/user/record-api/internal/adapter/repository/postgres"
	"github.com/user/record-api/internal/pkg/config"
	"github.com/user/record-api/internal/pkg/logger"
	"github.com/user/record-api/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewAPIMetrics()

	// --- Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("postgres is unreachable", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The cache is an optimization; reads fall back to postgres and the
		// rate limiter fails open locally until redis comes back.
		logger.Warn("could not connect to redis, starting with a cold cache", "error", err)
	}

	// --- Cache Store and Rate Limiter ---
	store := cache.NewRedisStore(redisClient, logger, m, cfg.CacheOpTimeout, cfg.ScanBatchSize)
	limiter := ratelimit.New(store, logger, m)

	// --- Repositories ---
	txManager := postgres.NewTxManager(db, logger)
	interactionRepo := postgres.NewInteractionRepository(db)
	noteRepo := postgres.NewNoteRepository(db)
	userRepo := postgres.NewUserRepository(db)
	siteRepo := postgres.NewSiteRepository(db)

	// --- Services ---
	authService := usecase.NewAuthService(userRepo, siteRepo, store, cfg.JWTSecret, cfg.JWTExpiry, logger)
	interactionService := usecase.NewInteractionService(interactionRepo, noteRepo, txManager, store, logger, m)
	userService := usecase.NewUserService(userRepo, txManager, store, logger, m)
	siteService := usecase.NewSiteService(siteRepo, txManager, logger)

	// --- API Server ---
	router := api.NewRouter(cfg, logger, limiter, authService, interactionService, userService, siteService)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		logger.Info("starting api server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
