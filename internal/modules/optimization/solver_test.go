package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolve_MinVariance_TwoAssets(t *testing.T) {
	// Closed form for two assets:
	//   w1 = (s2^2 - s12) / (s1^2 + s2^2 - 2*s12) = 0.02 / 0.05 = 0.4
	stats := makeStats(
		[]string{"A", "B"},
		[]float64{0.12, 0.08},
		[][]float64{
			{0.04, 0.01},
			{0.01, 0.03},
		},
	)

	result, err := testEngine().Solve(stats, ModeMinVariance, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success, result.Message)

	assertValidWeights(t, result.Weights)
	assert.InDelta(t, 0.4, result.Weights["A"], 0.05)
	assert.InDelta(t, 0.6, result.Weights["B"], 0.05)

	// Portfolio variance at the optimum is 0.022.
	assert.InDelta(t, math.Sqrt(0.022), result.Risk, 0.01)
}

func TestSolve_MaxSharpe_TiltsTowardBetterAsset(t *testing.T) {
	// Tangency weights are proportional to Cov^-1 * mu, about (0.69, 0.31).
	stats := makeStats(
		[]string{"A", "B"},
		[]float64{0.15, 0.08},
		[][]float64{
			{0.04, 0.01},
			{0.01, 0.03},
		},
	)

	result, err := testEngine().Solve(stats, ModeMaxSharpe, nil)
	require.NoError(t, err)
	assert.True(t, result.Success, result.Message)

	assertValidWeights(t, result.Weights)
	assert.Greater(t, result.Weights["A"], result.Weights["B"])

	// The mixed portfolio must beat the best single asset
	// (A alone has Sharpe 0.15 / 0.2 = 0.75).
	assert.GreaterOrEqual(t, result.Sharpe, 0.75-0.02)
}

func TestSolve_TargetReturn_HitsTarget(t *testing.T) {
	stats := makeStats(
		[]string{"A", "B"},
		[]float64{0.12, 0.08},
		[][]float64{
			{0.04, 0.01},
			{0.01, 0.03},
		},
	)

	target := 0.10
	result, err := testEngine().Solve(stats, ModeTargetReturn, &target)
	require.NoError(t, err)
	assert.True(t, result.Success, result.Message)

	assertValidWeights(t, result.Weights)
	assert.InDelta(t, target, result.ExpectedReturn, 0.01)
	assert.InDelta(t, 0.5, result.Weights["A"], 0.05)
}

func TestSolve_TargetReturn_RequiresTarget(t *testing.T) {
	stats := makeStats(
		[]string{"A", "B"},
		[]float64{0.12, 0.08},
		[][]float64{
			{0.04, 0.01},
			{0.01, 0.03},
		},
	)

	_, err := testEngine().Solve(stats, ModeTargetReturn, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target return required")
}

func TestSolve_UnknownMode(t *testing.T) {
	stats := makeStats([]string{"A", "B"}, []float64{0.1, 0.1}, [][]float64{
		{0.04, 0.0},
		{0.0, 0.04},
	})

	_, err := testEngine().Solve(stats, Mode(99), nil)
	require.Error(t, err)

	var unknownErr *UnknownMethodError
	assert.True(t, errors.As(err, &unknownErr))
}

func TestSolve_NoAssets(t *testing.T) {
	stats := &Statistics{Assets: []string{}, Returns: []float64{}, Cov: mat.NewSymDense(1, nil)}

	_, err := testEngine().Solve(stats, ModeMinVariance, nil)
	require.Error(t, err)

	var insufficientErr *InsufficientDataError
	assert.True(t, errors.As(err, &insufficientErr))
}

func TestSolve_Deterministic(t *testing.T) {
	// Equal-weight start and deterministic line search: identical runs
	// must land on the same point.
	stats := makeStats(
		[]string{"A", "B", "C"},
		[]float64{0.12, 0.08, 0.10},
		[][]float64{
			{0.04, 0.01, 0.005},
			{0.01, 0.03, 0.008},
			{0.005, 0.008, 0.025},
		},
	)

	engine := testEngine()
	first, err := engine.Solve(stats, ModeMinVariance, nil)
	require.NoError(t, err)
	second, err := engine.Solve(stats, ModeMinVariance, nil)
	require.NoError(t, err)

	for asset, w := range first.Weights {
		assert.InDelta(t, w, second.Weights[asset], 1e-9, asset)
	}
}

func TestSolve_FromDailyHistory(t *testing.T) {
	table := syntheticTable(t, 253)

	engine := testEngine()
	stats, err := engine.EstimateStatistics(table)
	require.NoError(t, err)

	for _, mode := range []Mode{ModeMinVariance, ModeMaxSharpe} {
		result, err := engine.Solve(stats, mode, nil)
		require.NoError(t, err, mode.String())
		assert.True(t, result.Success, result.Message)
		assertValidWeights(t, result.Weights)
		assert.False(t, math.IsNaN(result.Risk), mode.String())
		assert.False(t, math.IsNaN(result.Sharpe), mode.String())
	}
}

// assertValidWeights checks the feasibility contract: every weight in
// [0, 1] and the total within rounding of 1.
func assertValidWeights(t *testing.T, weights map[string]float64) {
	t.Helper()

	sum := 0.0
	for asset, w := range weights {
		sum += w
		assert.GreaterOrEqual(t, w, 0.0, "weight for %s should be non-negative", asset)
		assert.LessOrEqual(t, w, 1.0, "weight for %s should be <= 1", asset)
	}
	assert.InDelta(t, 1.0, sum, 1e-4, "weights should sum to 1")
}

// makeStats assembles Statistics directly from a return vector and
// covariance matrix, bypassing estimation.
func makeStats(assets []string, returns []float64, cov [][]float64) *Statistics {
	n := len(assets)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, cov[i][j])
		}
	}
	return &Statistics{Assets: assets, Returns: returns, Cov: sym}
}
