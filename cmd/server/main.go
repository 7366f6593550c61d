package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/logger"
	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/routes"
	"github.com/AnshRaj112/serenify-journal/internal/services"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}

// run connects the stores, builds the router and serves until SIGINT/SIGTERM.
func run(ctx context.Context, cfg *config.Config) error {
	logg, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logg.Sync()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	logg.Infow("connecting to MongoDB", "database", cfg.MongoDatabase)
	client, db, err := database.Connect(startCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() {
		if err := database.Disconnect(client); err != nil {
			logg.Warnw("mongodb disconnect failed", "err", err)
		}
	}()

	if err := database.EnsureIndexes(startCtx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logg.Info("MongoDB indexes ensured")

	var limiter *middleware.RedisRateLimiter
	if cfg.RedisURI != "" {
		rdb, err := database.ConnectRedis(startCtx, cfg.RedisURI)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer database.DisconnectRedis(rdb)
		limiter = middleware.NewRedisRateLimiter(rdb, logg)
		logg.Info("Redis rate limiting enabled")
	} else {
		logg.Warn("REDIS_URI not set, Redis rate limiting disabled")
	}

	auth, err := services.NewCredentialManager(services.CredentialConfig{
		Secret:   cfg.JWTSecret,
		TokenTTL: config.SessionDuration,
	}, database.NewUserRepository(db), logg)
	if err != nil {
		return fmt.Errorf("init credential manager: %w", err)
	}
	entries := services.NewEntryGuard(database.NewEntryRepository(db), logg)

	router := routes.NewRouter(routes.Deps{
		Config:  cfg,
		Log:     logg,
		Auth:    auth,
		Entries: entries,
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logg.Infow("Serenify journal backend running", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logg.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Errorw("HTTP server shutdown error", "err", err)
	}

	logg.Info("HTTP server stopped gracefully")
	return nil
}
