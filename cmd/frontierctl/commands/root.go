// Package commands implements the frontierctl subcommands. Each command
// wires the same service stack the HTTP server uses and prints its
// result as JSON on stdout; logs go to stderr so output stays pipeable.
package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/clients/yahoo"
	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "frontierctl",
	Short: "Frontier - portfolio optimization from the command line",
	Long: `Frontier CLI

Fetches daily price history, caches it in SQLite, and runs
mean-variance portfolio optimization without the HTTP server.
Results are printed as JSON on stdout.

Examples:
  frontierctl optimize AAPL MSFT GOOG --method max_sharpe
  frontierctl frontier AAPL MSFT GOOG --points 30
  frontierctl validate AAPL
  frontierctl history --limit 10
  frontierctl refresh`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// services bundles the wired stack a command needs. Close releases the
// database handle.
type services struct {
	log          zerolog.Logger
	db           *database.DB
	marketData   *marketdata.Service
	optimization *optimization.Service
}

func (s *services) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close database")
	}
}

// initServices wires the full stack the same way cmd/server does, minus
// the HTTP server and scheduler. A non-nil riskFree overrides the
// configured risk-free rate for this invocation.
func initServices(riskFree *float64) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if riskFree != nil {
		cfg.RiskFreeRate = *riskFree
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Out:    os.Stderr,
	})

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	quotes := yahoo.NewClient(log)
	if cfg.YahooBaseURL != "" {
		quotes.SetBaseURL(cfg.YahooBaseURL)
	}
	priceCache := marketdata.NewCacheRepository(db.Conn(), log)
	marketData := marketdata.NewService(quotes, priceCache, cfg.PriceCacheTTL, log)

	engine := optimization.NewEngine(cfg.RiskFreeRate, cfg.MaxIterations, log)
	history := optimization.NewHistoryRepository(db.Conn(), log)
	optimizationSvc := optimization.NewService(engine, marketData, history, log)

	return &services{
		log:          log,
		db:           db,
		marketData:   marketData,
		optimization: optimizationSvc,
	}, nil
}
