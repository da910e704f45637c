package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/statementhub/internal/config"
	"github.com/geocoder89/statementhub/internal/db"
	api "github.com/geocoder89/statementhub/internal/http"
	"github.com/geocoder89/statementhub/internal/observability"
	"github.com/geocoder89/statementhub/internal/repo/postgres"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if cfg.GroqAPIKey == "" {
		log.Warn("GROQ_API_KEY is not set, statement generation will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, "statementhub", cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("tracer shutdown", "err", err)
			}
		}()
	}

	if err := db.RunMigrations(ctx, cfg.DBURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	// metrics are not wired yet at this point, the repo tolerates a nil collector
	if err := db.EnsureBootstrapUser(ctx, postgres.NewUsersRepo(pool, nil), cfg); err != nil {
		return fmt.Errorf("bootstrap user: %w", err)
	}

	router := api.NewRouter(log, pool, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
