// Package marketdata fetches, caches, and cleans daily price history.
// It assembles the aligned price tables the optimization module
// consumes.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/clients/yahoo"
	"github.com/aristath/frontier/internal/modules/optimization"
)

const (
	// maxConcurrentFetches caps parallel upstream requests per table
	// build.
	maxConcurrentFetches = 4

	// minUsableRows is the row count below which the cleaned table is
	// considered thin and a warning is logged. One trading year.
	minUsableRows = 252

	// maxMissingFraction drops an asset when more than this share of
	// its observations is missing from the shared date index.
	maxMissingFraction = 0.5

	// validateProbeDays is the lookback window of the ticker probe.
	validateProbeDays = 7
)

// Service provides cleaned price tables backed by a SQLite cache and
// the Yahoo Finance client.
type Service struct {
	quotes *yahoo.Client
	cache  *CacheRepository
	ttl    time.Duration
	log    zerolog.Logger
}

// NewService creates the market data service. ttl controls how long a
// cached symbol is served without consulting the upstream source.
func NewService(quotes *yahoo.Client, cache *CacheRepository, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		quotes: quotes,
		cache:  cache,
		ttl:    ttl,
		log:    log.With().Str("component", "marketdata").Logger(),
	}
}

// GetPriceTable returns an aligned, gap-free price table for the given
// symbols over [start, end]. Symbols without usable data are dropped
// with a warning; if nothing usable remains the call fails with
// *NoDataError.
func (s *Service) GetPriceTable(ctx context.Context, symbols []string, start, end time.Time) (*optimization.PriceTable, error) {
	if err := s.ensureFresh(ctx, symbols, start, end); err != nil {
		return nil, err
	}

	series := make(map[string]map[string]float64)
	dateSet := make(map[string]bool)

	for _, symbol := range symbols {
		points, err := s.cache.GetPrices(symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to read cached prices for %s: %w", symbol, err)
		}
		if len(points) == 0 {
			s.log.Warn().Str("symbol", symbol).Msg("No price data for symbol")
			continue
		}

		series[symbol] = make(map[string]float64, len(points))
		for _, p := range points {
			series[symbol][p.Date] = p.Close
			dateSet[p.Date] = true
		}
	}

	if len(series) == 0 {
		return nil, &NoDataError{Symbols: symbols}
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	table, err := s.buildTable(symbols, dates, series)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("requested", len(symbols)).
		Int("assets", len(table.Assets)).
		Int("rows", table.Observations()).
		Msg("Built price table")

	return table, nil
}

// ensureFresh fetches history from upstream for every symbol whose
// cache entry is missing, stale, or does not reach back to start.
// Fetch failures are logged and the cached data, if any, is used.
func (s *Service) ensureFresh(ctx context.Context, symbols []string, start, end time.Time) error {
	cutoff := time.Now().Add(-s.ttl)
	startStr := start.Format("2006-01-02")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, symbol := range symbols {
		symbol := symbol // per-iteration copy: required for correctness before Go 1.22
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			rec, err := s.cache.LastFetch(symbol)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read fetch record")
			}
			if rec != nil && rec.FetchedAt.After(cutoff) && rec.StartDate <= startStr {
				return nil
			}

			s.fetchAndCache(ctx, symbol, start, end)
			return nil
		})
	}

	return g.Wait()
}

// fetchAndCache pulls one symbol's history from upstream and stores
// it. Failures only log: the caller falls back to cached data.
func (s *Service) fetchAndCache(ctx context.Context, symbol string, start, end time.Time) {
	bars, err := s.quotes.DailyHistory(ctx, symbol, start, end)
	if err != nil {
		var notFound *yahoo.SymbolNotFoundError
		if errors.As(err, &notFound) {
			s.log.Warn().Str("symbol", symbol).Msg("Symbol not found upstream")
		} else {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch prices, using cache")
		}
		return
	}

	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, PricePoint{
			Date:  b.Date.Format("2006-01-02"),
			Close: b.Close,
		})
	}

	if err := s.cache.UpsertPrices(symbol, points); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache prices")
		return
	}
	if err := s.cache.MarkFetched(symbol, start, end); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to record fetch")
	}
}

// buildTable aligns the per-symbol series on a shared date index and
// cleans it: forward-fill interior gaps, drop assets with excessive
// missing data, drop dates no surviving asset covers, back-fill
// leading gaps.
func (s *Service) buildTable(symbols, dates []string, series map[string]map[string]float64) (*optimization.PriceTable, error) {
	type column struct {
		symbol  string
		prices  []float64
		missing int
	}

	// Align each symbol to the shared index, marking gaps as NaN.
	columns := make([]column, 0, len(series))
	for _, symbol := range symbols {
		points, ok := series[symbol]
		if !ok {
			continue
		}

		prices := make([]float64, len(dates))
		missing := 0
		for i, date := range dates {
			if price, found := points[date]; found {
				prices[i] = price
			} else {
				prices[i] = math.NaN()
				missing++
			}
		}
		columns = append(columns, column{symbol: symbol, prices: prices, missing: missing})
	}

	// Forward-fill: carry the previous valid value across gaps.
	filledCount := 0
	for _, col := range columns {
		var lastValid float64
		hasLastValid := false
		for i := range col.prices {
			if math.IsNaN(col.prices[i]) {
				if hasLastValid {
					col.prices[i] = lastValid
					filledCount++
				}
			} else {
				lastValid = col.prices[i]
				hasLastValid = true
			}
		}
	}

	// Drop assets whose raw series misses too much of the index.
	kept := columns[:0]
	for _, col := range columns {
		if float64(col.missing) > maxMissingFraction*float64(len(dates)) {
			s.log.Warn().
				Str("symbol", col.symbol).
				Int("missing", col.missing).
				Int("dates", len(dates)).
				Msg("Dropping asset with excessive missing data")
			continue
		}
		kept = append(kept, col)
	}
	columns = kept

	if len(columns) == 0 {
		return nil, &NoDataError{Symbols: symbols}
	}

	// Drop rows every surviving asset is still missing. These are dates
	// contributed only by dropped assets, before the survivors' first
	// observations.
	keptDates := make([]string, 0, len(dates))
	keptRows := make([]int, 0, len(dates))
	for i := range dates {
		allNaN := true
		for _, col := range columns {
			if !math.IsNaN(col.prices[i]) {
				allNaN = false
				break
			}
		}
		if !allNaN {
			keptDates = append(keptDates, dates[i])
			keptRows = append(keptRows, i)
		}
	}

	if len(keptDates) == 0 {
		return nil, &NoDataError{Symbols: symbols}
	}

	// Back-fill leading gaps with the next valid value.
	for _, col := range columns {
		var nextValid float64
		hasNextValid := false
		for i := len(col.prices) - 1; i >= 0; i-- {
			if math.IsNaN(col.prices[i]) {
				if hasNextValid {
					col.prices[i] = nextValid
					filledCount++
				}
			} else {
				nextValid = col.prices[i]
				hasNextValid = true
			}
		}
	}

	if filledCount > 0 {
		s.log.Warn().
			Int("filled_data_points", filledCount).
			Msg("Filled missing price data")
	}

	if len(keptDates) < minUsableRows {
		s.log.Warn().
			Int("rows", len(keptDates)).
			Int("recommended", minUsableRows).
			Msg("Price history is thin, estimates will be noisy")
	}

	assets := make([]string, len(columns))
	data := mat.NewDense(len(keptDates), len(columns), nil)
	for j, col := range columns {
		assets[j] = col.symbol
		for i, row := range keptRows {
			data.Set(i, j, col.prices[row])
		}
	}

	return optimization.NewPriceTable(assets, keptDates, data)
}

// ValidateTicker probes the data source for recent prices. It never
// returns an error; unreachable upstreams report as invalid with a
// reason.
func (s *Service) ValidateTicker(ctx context.Context, symbol string) (bool, string) {
	end := time.Now()
	start := end.AddDate(0, 0, -validateProbeDays)

	bars, err := s.quotes.DailyHistory(ctx, symbol, start, end)
	if err != nil {
		var notFound *yahoo.SymbolNotFoundError
		if errors.As(err, &notFound) {
			return false, "symbol not found"
		}
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Ticker validation probe failed")
		return false, fmt.Sprintf("data source unreachable: %v", err)
	}

	if len(bars) == 0 {
		return false, "no recent price data"
	}

	return true, fmt.Sprintf("%d recent closes found", len(bars))
}

// RefreshStale re-fetches every cached symbol whose last fetch is
// older than the TTL. Returns the number of symbols refreshed.
func (s *Service) RefreshStale(ctx context.Context) (int, error) {
	stale, err := s.cache.StaleSymbols(time.Now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale symbols: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	refreshed := 0
	for _, symbol := range stale {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}

		rec, err := s.cache.LastFetch(symbol)
		if err != nil || rec == nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping refresh, no fetch record")
			continue
		}

		start, err := time.Parse("2006-01-02", rec.StartDate)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping refresh, bad fetch record")
			continue
		}

		s.fetchAndCache(ctx, symbol, start, time.Now())
		refreshed++
	}

	s.log.Info().
		Int("stale", len(stale)).
		Int("refreshed", refreshed).
		Msg("Refreshed stale price cache entries")

	return refreshed, nil
}

// CacheStats exposes cache counters for the system status endpoint.
func (s *Service) CacheStats() (CacheStats, error) {
	return s.cache.Stats()
}
