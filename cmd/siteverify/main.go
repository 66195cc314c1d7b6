package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poyrazK/siteverify/internal/adapters/api"
	"github.com/poyrazK/siteverify/internal/adapters/fetcher"
	"github.com/poyrazK/siteverify/internal/adapters/lock"
	"github.com/poyrazK/siteverify/internal/adapters/repository"
	"github.com/poyrazK/siteverify/internal/adapters/resolver"
	"github.com/poyrazK/siteverify/internal/config"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/poyrazK/siteverify/internal/core/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("siteverify exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// Used by tests to exercise wiring without a database.
	if cfg.DatabaseURL == "none" {
		logger.Info("no database configured, exiting")
		return nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	var locker ports.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rl := lock.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LockTTL)
		defer func() { _ = rl.Close() }()
		if err := rl.Ping(ctx); err != nil {
			logger.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		locker = rl
	}

	res := resolver.New(cfg.DNSUpstream, cfg.CheckTimeout, logger)
	fet := fetcher.New(fetcher.Config{
		Timeout:           cfg.CheckTimeout,
		MaxBody:           cfg.FileMaxBody,
		AllowHTTPFallback: cfg.FileAllowHTTPFallback,
	}, logger)

	checker := services.NewChecker(res, fet, logger)
	generator := services.NewChallengeGenerator(cfg.DNSLabel, cfg.FilePrefix, cfg.ChallengeTTL)

	websiteSvc := services.NewWebsiteService(repo, repo, locker, services.RegistryConfig{
		MaxAttempts:     cfg.MaxAttempts,
		AdScriptBaseURL: cfg.AdScriptBaseURL,
	}, nil, logger)
	verificationSvc := services.NewVerificationService(repo, repo, locker, checker, generator, services.VerificationConfig{
		MaxAttempts:  cfg.MaxAttempts,
		CheckTimeout: cfg.CheckTimeout,
	}, nil, logger)
	moderationSvc := services.NewModerationService(repo, repo, locker, cfg.MaxAttempts, nil, logger)

	handler := api.NewAPIHandler(websiteSvc, verificationSvc, moderationSvc, repo, api.NewCheckLimiter(cfg.CheckRatePerMinute))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.RequestID(logger)(mux),
		ReadHeaderTimeout: 5 * time.Second,
		// Checks may take up to CheckTimeout on the upstream lookup.
		WriteTimeout: cfg.CheckTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("management API listening", "addr", cfg.HTTPAddr, "lock", lockKind(cfg))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func lockKind(cfg *config.Config) string {
	if cfg.RedisAddr != "" {
		return "redis"
	}
	return "local"
}
