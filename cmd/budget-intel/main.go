package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/cache"
	"github.com/radiusdt/budget-intel/internal/config"
	"github.com/radiusdt/budget-intel/internal/database"
	"github.com/radiusdt/budget-intel/internal/httpserver"
	"github.com/radiusdt/budget-intel/internal/metrics"
	"github.com/radiusdt/budget-intel/internal/middleware"
	"github.com/radiusdt/budget-intel/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet
		panic("failed to load config: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting budget-intel",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("timezone", cfg.Budget.Timezone),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("budget_intel", reg)

	if cfg.IsProduction() && !cfg.Auth.Enabled {
		logger.Warn("API key auth is disabled in production")
	}

	checks := make(map[string]httpserver.HealthChecker)

	// Metric Store: Postgres, the ClickHouse replica, or memory in development
	var (
		store   storage.MetricStore
		backend string
	)
	db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
	switch {
	case err == nil:
		defer db.Close()
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(cfg.Database, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store, backend = storage.NewPostgresStore(db.Pool), storage.BackendPostgres
		checks["postgres"] = db
		go reportPoolStats(ctx, db, m)
	case cfg.IsDevelopment():
		logger.Warn("PostgreSQL unreachable, serving from an empty in-memory store", zap.Error(err))
		store, backend = storage.NewMemoryStore(), storage.BackendMemory
	default:
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}

	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("failed to connect to ClickHouse", zap.Error(err))
		}
		defer ch.Close()
		store, backend = storage.NewClickHouseStore(ch.Conn, logger), storage.BackendClickHouse
	}
	store = storage.Instrument(store, backend, m)

	// Response cache
	var responseCache cache.Cache
	if cfg.Redis.Enabled {
		rdb, err := database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unreachable, response cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			responseCache = cache.NewRedisCache(rdb.Client, m)
			checks["redis"] = rdb
		}
	}

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Store:   store,
		Backend: backend,
		Cache:   responseCache,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Checks:  checks,
	})

	// RequestID -> Recovery -> Logging -> RateLimit -> Auth -> Handler
	recoveryMW := middleware.NewRecoveryMiddleware(logger)
	loggingMW := middleware.NewLoggingMiddleware(logger)
	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	rateLimitMW.SetMetrics(m)
	authMW := middleware.NewAuthMiddleware(cfg.Auth, logger)

	limit := rateLimitMW.Handler
	if cfg.RateLimit.PerIP {
		limit = rateLimitMW.HandlerPerIP
	}

	finalHandler := middleware.RequestID(
		recoveryMW.Handler(
			loggingMW.Handler(
				limit(
					authMW.Handler(handler),
				),
			),
		),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		// The advisor waits on the LLM.
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr), zap.String("backend", backend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Rate limiter cleanup
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimitMW.CleanupIPLimiters()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	cancel()
	logger.Info("server stopped")
}

// reportPoolStats publishes pgx pool gauges every 15 seconds.
func reportPoolStats(ctx context.Context, db *database.PostgresDB, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s := db.Pool.Stat()
			m.UpdateDBStats(int(s.IdleConns()), int(s.AcquiredConns()), int(s.TotalConns()))
		case <-ctx.Done():
			return
		}
	}
}
