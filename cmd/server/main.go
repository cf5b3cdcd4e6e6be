/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse environment configuration
  2. Build the zap logger
  3. Initialize SQLite store
  4. Start the background recalculator
  5. Configure HTTP router and start the server with graceful shutdown

ENVIRONMENT:
  PAYROLL_ADDR             Listen address (default :8080)
  PAYROLL_DB               SQLite database path (default payroll.db)
                           Use ":memory:" for in-memory database
  PAYROLL_JWT_SECRET       HMAC secret for API tokens (required)
  PAYROLL_RECALC_DEBOUNCE  Recalculation debounce window (default 2s)
  PAYROLL_RECALC_WORKERS   Concurrent slip computations (default 4)
  PAYROLL_LOG_LEVEL        zap level: debug, info, warn, error (default info)
  PAYROLL_CORS_ORIGINS     Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the recalculator loop
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - payroll/recalc.go: Background recalculation
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

type config struct {
	Addr           string        `env:"PAYROLL_ADDR" envDefault:":8080"`
	DBPath         string        `env:"PAYROLL_DB" envDefault:"payroll.db"`
	JWTSecret      string        `env:"PAYROLL_JWT_SECRET,required"`
	RecalcDebounce time.Duration `env:"PAYROLL_RECALC_DEBOUNCE" envDefault:"2s"`
	RecalcWorkers  int           `env:"PAYROLL_RECALC_WORKERS" envDefault:"4"`
	LogLevel       string        `env:"PAYROLL_LOG_LEVEL" envDefault:"info"`
	CORSOrigins    []string      `env:"PAYROLL_CORS_ORIGINS" envSeparator:","`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	recalc := payroll.NewRecalculator(store, store, store, logger.Named("recalc"),
		payroll.RecalculatorConfig{
			Debounce: cfg.RecalcDebounce,
			Workers:  cfg.RecalcWorkers,
		})

	recalcCtx, stopRecalc := context.WithCancel(context.Background())
	recalcDone := make(chan struct{})
	go func() {
		defer close(recalcDone)
		recalc.Run(recalcCtx)
	}()

	handler := api.NewHandler(store, recalc, logger.Named("api"))
	router := api.NewRouter(handler, api.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	stopRecalc()
	<-recalcDone

	logger.Info("server stopped")
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
