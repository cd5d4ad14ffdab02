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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kromedia/neo/internal/app/migrate"
	httpx "github.com/kromedia/neo/internal/http"
	"github.com/kromedia/neo/internal/neo"
	"github.com/kromedia/neo/internal/repository/postgres"
	"github.com/kromedia/neo/internal/service/auth"
	"github.com/kromedia/neo/internal/service/inspection"
	"github.com/kromedia/neo/internal/ws"
	"github.com/kromedia/neo/pkg/config"
	"github.com/kromedia/neo/pkg/logger"
)

const resumeLimit = 100

func main() {
	cfg := config.LoadServerConfig()
	log := logger.New("neo-api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if cfg.AutoMigrate {
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Info("automatic migrations disabled; run cmd/migrate -command up")
	}

	fetcher, err := newFetcher(ctx, cfg, log)
	if err != nil {
		log.Error("failed to configure report fetcher", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	repo := postgres.New(pool)
	hub := ws.NewHub()
	inspections := inspection.New(repo, repo, fetcher, hub, log, inspection.Config{
		TickInterval:    cfg.TickInterval,
		MinTickInterval: cfg.MinTickInterval,
		MaxTickInterval: cfg.MaxTickInterval,
		RefreshDelay:    cfg.RefreshDelay,
		RetentionWindow: cfg.RetentionWindow,
		CheckpointEvery: cfg.CheckpointEvery,
	}, inspection.WithMetrics(inspection.NewMetrics(registry)))
	if _, err := inspections.Resume(ctx, resumeLimit); err != nil {
		log.Warn("failed to resume sessions", "error", err)
	}
	runDone := make(chan struct{})
	go func() {
		inspections.Run(ctx)
		close(runDone)
	}()

	authSvc := auth.New(log, cfg)
	if strings.TrimSpace(cfg.OperatorKeyHash) == "" {
		log.Warn("OPERATOR_KEY_HASH not set; token issuance disabled")
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, inspections, limiter, httpx.WithRegistry(registry), httpx.WithDBHealth(pool.Ping))
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		<-runDone
		inspections.Shutdown(shutdownCtx)
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// newFetcher talks to Gemini when an API key is configured and falls back to
// the canned report otherwise.
func newFetcher(ctx context.Context, cfg config.ServerConfig, log *slog.Logger) (inspection.ReportFetcher, error) {
	if key := strings.TrimSpace(cfg.GeminiAPIKey); key != "" {
		return neo.NewGeminiFetcher(ctx, key, cfg.GeminiModel, cfg.ReportFetchTimeout, log)
	}
	log.Warn("GEMINI_API_KEY not set; serving fixture reports", "path", cfg.ReportFixturePath)
	return neo.NewFixtureFetcher(cfg.ReportFixturePath)
}
