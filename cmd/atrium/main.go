package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/activity"
	"github.com/atrium-admin/atrium/internal/app"
	"github.com/atrium-admin/atrium/internal/auth"
	"github.com/atrium-admin/atrium/internal/observability"
	"github.com/atrium-admin/atrium/internal/password"
	"github.com/atrium-admin/atrium/internal/platform/cache"
	"github.com/atrium-admin/atrium/internal/platform/db"
	"github.com/atrium-admin/atrium/internal/stats"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	hasher := password.NewHasher(cfg.BcryptCost)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:      []byte(cfg.JWTSecret),
		TTL:         cfg.TokenTTL,
		TTLRemember: cfg.TokenTTLRemember,
	})
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	recorder := activity.NewRecorder(pool)
	activityRepo := activity.NewRepository(pool)
	accountsRepo := accounts.NewRepository(pool)

	authService := auth.NewService(accountsRepo, tokens, hasher, recorder, metrics, logger)
	authMiddleware := auth.NewMiddleware(tokens, authService, logger)
	authHandler := auth.NewHandler(logger, authService, authMiddleware)

	accountsService := accounts.NewService(accountsRepo, hasher, recorder, logger)
	accountsHandler := accounts.NewHandler(logger, accountsService, authMiddleware)

	statsCache := stats.NewCache(redisClient, cfg.StatsCacheTTL)
	statsService := stats.NewService(accountsRepo, activityRepo, statsCache, logger)
	statsHandler := stats.NewHandler(logger, statsService, authMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		AccountsHandler: accountsHandler,
		StatsHandler:    statsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
