package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ezekaj/elo-deu/internal/api/router"
	"github.com/ezekaj/elo-deu/internal/booking"
	"github.com/ezekaj/elo-deu/internal/call"
	"github.com/ezekaj/elo-deu/internal/clinic"
	appconfig "github.com/ezekaj/elo-deu/internal/config"
	"github.com/ezekaj/elo-deu/internal/nlu"
	"github.com/ezekaj/elo-deu/internal/observability/metrics"
	"github.com/ezekaj/elo-deu/internal/patients"
	"github.com/ezekaj/elo-deu/internal/schedule"
	"github.com/ezekaj/elo-deu/internal/tools"
	"github.com/ezekaj/elo-deu/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental scheduling API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	loc, err := time.LoadLocation(cfg.PracticeTimezone)
	if err != nil {
		logger.Error("invalid practice timezone", "tz", cfg.PracticeTimezone, "error", err)
		os.Exit(1)
	}

	hours := clinic.DefaultHours()
	slots := schedule.NewMemorySlotStore()
	engine := schedule.NewEngine(hours, slots, cfg.SearchHorizonDays)
	registry := patients.NewInMemoryRepository()

	promRegistry := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(promRegistry)

	var store booking.Store = booking.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = booking.NewPostgresStore(pool)
		logger.Info("appointments persisted in Postgres")
	}

	svc := booking.NewService(engine, slots, store, registry, m, logger, loc, cfg.SuggestionCount)
	parser := nlu.NewParser(hours, loc)

	var calls tools.CallStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		calls = call.NewSessionStore(rdb, cfg.SessionTTL)
		logger.Info("call state persisted in Redis", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("REDIS_ADDR not set, call state is disabled")
	}

	toolRegistry := tools.NewRegistry(svc, parser, calls, registry, clinic.DefaultPractice(), logger)

	r := router.New(&router.Config{
		Logger:         logger,
		ToolsHandler:   tools.NewHandler(toolRegistry, logger),
		MetricsHandler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
