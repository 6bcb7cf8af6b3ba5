package optimization

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/pkg/formulas"
)

// Evaluate computes the risk/return profile of a weight vector against
// the estimated statistics. weights must align with stats.Assets. Risk
// is sqrt(w'Σw) with the variance clamped at zero, so tiny negative
// values from floating-point noise cannot produce NaN.
func (e *Engine) Evaluate(weights []float64, stats *Statistics) Performance {
	ret := floats.Dot(weights, stats.Returns)

	w := mat.NewVecDense(len(weights), weights)
	variance := mat.Inner(w, stats.Cov, w)
	risk := math.Sqrt(math.Max(variance, 0))

	return Performance{Return: ret, Risk: risk, Sharpe: e.sharpe(ret, risk)}
}

// AssetPerformance scores each asset as a standalone 100% portfolio:
// its own expected return against the square root of its variance.
// This is the baseline the optimized portfolio is compared against.
func (e *Engine) AssetPerformance(stats *Statistics) map[string]Performance {
	perf := make(map[string]Performance, len(stats.Assets))
	for i, asset := range stats.Assets {
		ret := stats.Returns[i]
		risk := math.Sqrt(math.Max(stats.Cov.At(i, i), 0))
		perf[asset] = Performance{Return: ret, Risk: risk, Sharpe: e.sharpe(ret, risk)}
	}
	return perf
}

func (e *Engine) sharpe(ret, risk float64) float64 {
	return formulas.SharpeRatio(ret, risk, e.riskFreeRate)
}
