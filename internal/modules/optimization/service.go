package optimization

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLookbackYears is the price window used when no dates are given.
const DefaultLookbackYears = 3

// Service orchestrates a full optimization request: fetch prices,
// estimate statistics, solve, score the individual assets, record the
// run. All dependencies are injected; the service holds no globals.
type Service struct {
	engine  *Engine
	prices  PriceSource
	history *HistoryRepository
	log     zerolog.Logger
}

// NewService creates the optimization service. history may be nil, in
// which case runs are not recorded.
func NewService(engine *Engine, prices PriceSource, history *HistoryRepository, log zerolog.Logger) *Service {
	return &Service{
		engine:  engine,
		prices:  prices,
		history: history,
		log:     log.With().Str("component", "optimization_service").Logger(),
	}
}

// OptimizeResponse is the wire shape of a single-portfolio
// optimization.
type OptimizeResponse struct {
	Method           string                 `json:"method"`
	Weights          map[string]float64     `json:"weights"`
	ExpectedReturn   float64                `json:"expected_return"`
	Risk             float64                `json:"expected_risk"`
	Sharpe           float64                `json:"sharpe_ratio"`
	Success          bool                   `json:"success"`
	Message          string                 `json:"message"`
	AssetPerformance map[string]Performance `json:"asset_performance"`
}

// FrontierResponse is the wire shape of an efficient frontier sweep.
type FrontierResponse struct {
	Points           []FrontierPoint        `json:"frontier_points"`
	AssetPerformance map[string]Performance `json:"asset_performance"`
}

// Optimize runs a single-portfolio optimization for the given tickers.
// Zero start/end times default to a 3-year window ending today.
func (s *Service) Optimize(ctx context.Context, tickers []string, mode Mode, start, end time.Time) (*OptimizeResponse, error) {
	table, err := s.fetchTable(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	stats, err := s.engine.EstimateStatistics(table)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Solve(stats, mode, nil)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("method", mode.String()).
		Strs("tickers", table.Assets).
		Bool("converged", result.Success).
		Float64("sharpe", result.Sharpe).
		Msg("Optimization completed")

	s.record(RunRecord{
		Kind:           RunKindOptimize,
		Method:         mode.String(),
		Tickers:        table.Assets,
		ExpectedReturn: result.ExpectedReturn,
		Risk:           result.Risk,
		Sharpe:         result.Sharpe,
		Success:        result.Success,
		Message:        result.Message,
		Weights:        result.Weights,
	})

	return &OptimizeResponse{
		Method:           mode.String(),
		Weights:          result.Weights,
		ExpectedReturn:   result.ExpectedReturn,
		Risk:             result.Risk,
		Sharpe:           result.Sharpe,
		Success:          result.Success,
		Message:          result.Message,
		AssetPerformance: s.engine.AssetPerformance(stats),
	}, nil
}

// Frontier generates the efficient frontier for the given tickers.
// An empty point list is a valid outcome; the caller decides how to
// report it.
func (s *Service) Frontier(ctx context.Context, tickers []string, nPoints int, start, end time.Time) (*FrontierResponse, error) {
	table, err := s.fetchTable(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	stats, err := s.engine.EstimateStatistics(table)
	if err != nil {
		return nil, err
	}

	points := s.engine.Frontier(ctx, stats, nPoints)

	s.log.Info().
		Strs("tickers", table.Assets).
		Int("requested", nPoints).
		Int("solved", len(points)).
		Msg("Frontier sweep completed")

	s.record(RunRecord{
		Kind:    RunKindFrontier,
		Method:  ModeTargetReturn.String(),
		Tickers: table.Assets,
		Success: len(points) > 0,
		Message: fmt.Sprintf("%d of %d frontier points solved", len(points), nPoints),
		Points:  len(points),
	})

	return &FrontierResponse{
		Points:           points,
		AssetPerformance: s.engine.AssetPerformance(stats),
	}, nil
}

// History returns the most recent recorded runs.
func (s *Service) History(limit int) ([]RunRecord, error) {
	if s.history == nil {
		return []RunRecord{}, nil
	}
	return s.history.ListRecent(limit)
}

func (s *Service) fetchTable(ctx context.Context, tickers []string, start, end time.Time) (*PriceTable, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(-DefaultLookbackYears, 0, 0)
	}
	return s.prices.GetPriceTable(ctx, tickers, start, end)
}

// record persists a run. History is advisory: a storage failure is
// logged and does not fail the request.
func (s *Service) record(rec RunRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(rec); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record optimization run")
	}
}
