package optimization

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEstimateStatistics_HandComputed(t *testing.T) {
	// A: changes +10%, -5% -> mean 0.025, sample variance 0.01125
	// B: changes +2%, +2% -> mean 0.02, variance 0
	table := makeTable(t, []string{"A", "B"}, [][]float64{
		{100, 110, 104.5},
		{50, 51, 52.02},
	})

	stats, err := testEngine().EstimateStatistics(table)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, stats.Assets)

	assert.InDelta(t, 0.025*252, stats.Returns[0], 1e-9)
	assert.InDelta(t, 0.02*252, stats.Returns[1], 1e-9)

	assert.InDelta(t, 0.01125*252, stats.Cov.At(0, 0), 1e-9)
	assert.InDelta(t, 0.0, stats.Cov.At(1, 1), 1e-9)
	// B never deviates from its mean, so the cross term vanishes.
	assert.InDelta(t, 0.0, stats.Cov.At(0, 1), 1e-9)
}

func TestEstimateStatistics_IdenticalSeriesFullyCorrelated(t *testing.T) {
	series := []float64{100, 103, 99, 108, 105, 111}
	table := makeTable(t, []string{"X", "Y"}, [][]float64{series, series})

	stats, err := testEngine().EstimateStatistics(table)
	require.NoError(t, err)

	// Identical columns: covariance equals the common variance.
	assert.InDelta(t, stats.Cov.At(0, 0), stats.Cov.At(0, 1), 1e-12)
	assert.InDelta(t, stats.Cov.At(0, 0), stats.Cov.At(1, 1), 1e-12)
	assert.Greater(t, stats.Cov.At(0, 0), 0.0)
}

func TestEstimateStatistics_TooFewAssets(t *testing.T) {
	table := makeTable(t, []string{"A"}, [][]float64{{100, 101, 102}})

	_, err := testEngine().EstimateStatistics(table)
	require.Error(t, err)

	var insufficientErr *InsufficientDataError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, 1, insufficientErr.Assets)
	assert.Equal(t, 3, insufficientErr.Rows)
}

func TestEstimateStatistics_TooFewRows(t *testing.T) {
	table := makeTable(t, []string{"A", "B"}, [][]float64{{100}, {50}})

	_, err := testEngine().EstimateStatistics(table)
	require.Error(t, err)

	var insufficientErr *InsufficientDataError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, 1, insufficientErr.Rows)
}

func TestEstimateStatistics_NaNRowsContributeZeroChange(t *testing.T) {
	// Both changes touching the NaN row are suppressed, leaving A with
	// zero drift instead of garbage.
	table := makeTable(t, []string{"A", "B"}, [][]float64{
		{100, math.NaN(), 110},
		{10, 11, 12.1},
	})

	stats, err := testEngine().EstimateStatistics(table)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, stats.Returns[0], 1e-12)
	assert.False(t, math.IsNaN(stats.Cov.At(0, 0)))
	assert.InDelta(t, 0.10*252, stats.Returns[1], 1e-9)
}

// testEngine returns an engine with a zero risk-free rate and the
// default iteration cap.
func testEngine() *Engine {
	return NewEngine(0.0, 1000, zerolog.Nop())
}

// makeTable builds a price table from per-asset price columns over
// sequential synthetic dates.
func makeTable(t *testing.T, assets []string, cols [][]float64) *PriceTable {
	t.Helper()

	rows := len(cols[0])
	dates := make([]string, rows)
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i).Format("2006-01-02")
	}

	data := mat.NewDense(rows, len(assets), nil)
	for j, col := range cols {
		require.Len(t, col, rows)
		for i, v := range col {
			data.Set(i, j, v)
		}
	}

	table, err := NewPriceTable(assets, dates, data)
	require.NoError(t, err)
	return table
}

// syntheticTable builds a deterministic 3-asset daily history with
// distinct drifts and oscillation phases, enough structure for the
// solvers to produce a non-degenerate covariance matrix.
func syntheticTable(t *testing.T, days int) *PriceTable {
	t.Helper()

	assets := []string{"AAA", "BBB", "CCC"}
	drift := []float64{0.0008, 0.0005, 0.0011}
	amp := []float64{0.010, 0.006, 0.014}

	cols := make([][]float64, len(assets))
	for j := range assets {
		prices := make([]float64, days)
		p := 100.0
		for i := 0; i < days; i++ {
			p *= 1 + drift[j] + amp[j]*math.Sin(float64(i)+float64(j))
			prices[i] = p
		}
		cols[j] = prices
	}

	return makeTable(t, assets, cols)
}
