package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"user-directory-server/internal/auth"
	"user-directory-server/internal/config"
	"user-directory-server/internal/db"
	transport "user-directory-server/internal/http"
	"user-directory-server/internal/http/handlers"
	"user-directory-server/internal/http/middleware"
	"user-directory-server/internal/repo"
	"user-directory-server/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, pinger, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open user store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	created, err := db.EnsureSeedUsers(ctx, store, hasher, cfg.SeedUsers)
	if err != nil {
		logger.Error("failed to seed users", "error", err)
		os.Exit(1)
	}
	if created > 0 {
		logger.Info("seed users created", "count", created)
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		logger.Error("failed to set up rate limiter", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	var notifier services.RecoveryNotifier
	if cfg.SendgridAPIKey != "" {
		notifier = services.NewSendgridNotifier(cfg.SendgridAPIKey, cfg.MailFrom)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	userService := services.NewUserService(store, hasher, tokens, notifier, cfg, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:      cfg,
		Users:       userService,
		Auth:        tokens,
		Logger:      logger,
		RateLimiter: limiter,
		Health:      pinger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.RequestTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrors:
		logger.Error("http server stopped unexpectedly", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("http server stopped")
}

// openStore builds the user store selected by STORE_DRIVER. The returned
// pinger is nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.UserStore, handlers.Pinger, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory user store, data is lost on restart")
		return repo.NewMemoryUserRepo(), nil, func() {}, nil

	case config.StoreDriverGorm:
		gormDB, err := db.ConnectGorm(ctx, cfg.DBURL, cfg.DBMaxConns, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.RunMigrations {
			sqlDB, err := gormDB.SQL()
			if err == nil {
				err = db.Migrate(ctx, sqlDB, "up")
			}
			if err != nil {
				gormDB.Close()
				return nil, nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return repo.NewGormUserRepo(gormDB.DB, cfg.RequestTimeout), gormDB, gormDB.Close, nil

	default:
		dbConn, err := db.Connect(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.RunMigrations {
			if err := db.MigrateUp(ctx, dbConn.Pool); err != nil {
				dbConn.Close()
				return nil, nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return repo.NewUserRepo(dbConn.Pool, cfg.RequestTimeout), dbConn, dbConn.Close, nil
	}
}

// newLimiter uses Redis when REDIS_URL is set so that several instances share
// one budget per client.
func newLimiter(ctx context.Context, cfg *config.Config) (middleware.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		return middleware.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return middleware.NewRedisLimiter(client, cfg.RateLimitPerMinute, time.Minute), func() { _ = client.Close() }, nil
}

func newLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if env != "prod" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
