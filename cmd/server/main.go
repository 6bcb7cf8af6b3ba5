// Package main is the entry point for the Frontier portfolio optimization service.
// The service fetches daily price history for requested tickers, caches it in
// SQLite, and exposes mean-variance optimization and efficient frontier
// endpoints over HTTP.
//
// Startup sequence:
//  1. Load configuration from environment variables (.env file)
//  2. Initialize structured logging
//  3. Open the SQLite database and apply migrations
//  4. Wire the market data and optimization services
//  5. Register background jobs (price refresh, history pruning)
//  6. Start the HTTP server
//  7. Wait for shutdown signal and stop gracefully
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/frontier/internal/clients/yahoo"
	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/scheduler"
	"github.com/aristath/frontier/internal/server"
	"github.com/aristath/frontier/pkg/logger"
)

func main() {
	// Load configuration first to get the log level.
	cfg, err := config.Load()
	if err != nil {
		// Use a fallback logger so the configuration error itself is logged.
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	log.Info().Str("version", server.Version).Msg("Starting Frontier")

	// Open the database and apply migrations before anything touches it.
	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Str("path", db.Path()).Msg("Database ready")

	// Market data: Yahoo Finance client behind the SQLite price cache.
	quotes := yahoo.NewClient(log)
	if cfg.YahooBaseURL != "" {
		quotes.SetBaseURL(cfg.YahooBaseURL)
	}
	priceCache := marketdata.NewCacheRepository(db.Conn(), log)
	marketData := marketdata.NewService(quotes, priceCache, cfg.PriceCacheTTL, log)

	// Optimization: solver engine plus run history, fed by the market data service.
	engine := optimization.NewEngine(cfg.RiskFreeRate, cfg.MaxIterations, log)
	history := optimization.NewHistoryRepository(db.Conn(), log)
	optimizationSvc := optimization.NewService(engine, marketData, history, log)

	// Background jobs: keep cached prices fresh and prune old run records.
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PriceRefreshSchedule, scheduler.NewRefreshPricesJob(marketData, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price refresh job")
	}
	if err := sched.AddJob(cfg.HistoryPruneSchedule, scheduler.NewPruneHistoryJob(history, cfg.HistoryRetentionDays, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register history prune job")
	}

	sched.Start()

	srv := server.New(server.Config{
		Log:          log,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		DB:           db,
		Optimization: optimizationSvc,
		MarketData:   marketData,
		History:      history,
	})

	// The HTTP server runs in its own goroutine so main can block on signals.
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Block until SIGINT (Ctrl+C) or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop the scheduler first so no job starts mid-shutdown.
	sched.Stop()

	// Give in-flight HTTP requests up to 10 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
