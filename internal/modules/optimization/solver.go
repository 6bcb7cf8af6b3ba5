package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// penaltyWeight scales the quadratic penalties that push the
// unconstrained minimizer onto the fully-invested plane (and onto the
// target-return plane in target mode).
const penaltyWeight = 1000.0

// Solve runs one constrained optimization over the estimated
// statistics. Weights are bounded to [0, 1] and sum to 1. target is
// required in ModeTargetReturn and ignored otherwise.
//
// Non-convergence is not an error: the result carries Success=false,
// a status message, and the best point found. Only a failure of the
// numerical routine itself returns an error, as OptimizationFailedError.
//
// ModeMaxSharpe is non-convex; with the deterministic equal-weight
// start the solver lands on a local optimum, which is the accepted
// behavior.
func (e *Engine) Solve(stats *Statistics, mode Mode, target *float64) (*Result, error) {
	n := len(stats.Assets)
	if n == 0 {
		return nil, &InsufficientDataError{Assets: 0, Rows: 0}
	}

	var problem optimize.Problem
	switch mode {
	case ModeMinVariance:
		problem = e.minVarianceProblem(stats)
	case ModeMaxSharpe:
		problem = e.maxSharpeProblem(stats)
	case ModeTargetReturn:
		if target == nil {
			return nil, fmt.Errorf("target return required for %s mode", mode)
		}
		problem = e.targetReturnProblem(stats, *target)
	default:
		return nil, &UnknownMethodError{Method: mode.String()}
	}

	// Deterministic equal-weight starting point for every solve.
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	settings := &optimize.Settings{MajorIterations: e.maxIterations}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil {
		// BFGS can fail outright on ill-conditioned problems; retry
		// once with a gradient-free method before giving up.
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if err != nil {
			return nil, &OptimizationFailedError{Cause: err}
		}
	}

	converged := result.Status == optimize.Success ||
		result.Status == optimize.GradientThreshold ||
		result.Status == optimize.FunctionConvergence

	weights := finalizeWeights(result.X)
	perf := e.Evaluate(weights, stats)

	weightMap := make(map[string]float64, n)
	for i, asset := range stats.Assets {
		weightMap[asset] = weights[i]
	}

	message := fmt.Sprintf("optimization converged (status: %v)", result.Status)
	if !converged {
		message = fmt.Sprintf("optimization did not converge within %d iterations (status: %v)", e.maxIterations, result.Status)
		e.log.Warn().
			Str("mode", mode.String()).
			Str("status", fmt.Sprint(result.Status)).
			Msg("Optimization did not converge, returning best point found")
	}

	return &Result{
		Weights:        weightMap,
		ExpectedReturn: perf.Return,
		Risk:           perf.Risk,
		Sharpe:         perf.Sharpe,
		Success:        converged,
		Message:        message,
	}, nil
}

// minVarianceProblem minimizes w'Σw plus the sum-to-one penalty.
func (e *Engine) minVarianceProblem(stats *Statistics) optimize.Problem {
	n := len(stats.Assets)
	cov := stats.Cov

	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToUnitBox(x)
			variance := quadraticForm(w, stats)
			sum := floats.Sum(w)
			return variance + penaltyWeight*(sum-1)*(sum-1)
		},
		Grad: func(grad, x []float64) {
			w := projectToUnitBox(x)
			sum := floats.Sum(w)
			for i := 0; i < n; i++ {
				g := 2 * penaltyWeight * (sum - 1)
				for j := 0; j < n; j++ {
					g += 2 * cov.At(i, j) * w[j]
				}
				grad[i] = g
			}
		},
	}
}

// maxSharpeProblem minimizes the negative Sharpe ratio plus the
// sum-to-one penalty.
func (e *Engine) maxSharpeProblem(stats *Statistics) optimize.Problem {
	n := len(stats.Assets)
	mu := stats.Returns
	cov := stats.Cov
	rf := e.riskFreeRate

	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToUnitBox(x)
			excess := floats.Dot(mu, w) - rf
			variance := quadraticForm(w, stats)
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			sum := floats.Sum(w)
			return -excess/stdDev + penaltyWeight*(sum-1)*(sum-1)
		},
		Grad: func(grad, x []float64) {
			w := projectToUnitBox(x)
			excess := floats.Dot(mu, w) - rf
			variance := quadraticForm(w, stats)
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			sum := floats.Sum(w)
			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * cov.At(i, j) * w[j]
				}
				grad[i] = -mu[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev) +
					2*penaltyWeight*(sum-1)
			}
		},
	}
}

// targetReturnProblem minimizes w'Σw with penalties on both the
// sum-to-one and the μ'w = target constraints.
func (e *Engine) targetReturnProblem(stats *Statistics, target float64) optimize.Problem {
	n := len(stats.Assets)
	mu := stats.Returns
	cov := stats.Cov

	return optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToUnitBox(x)
			variance := quadraticForm(w, stats)
			ret := floats.Dot(mu, w)
			sum := floats.Sum(w)
			obj := variance
			obj += penaltyWeight * (sum - 1) * (sum - 1)
			obj += penaltyWeight * (ret - target) * (ret - target)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToUnitBox(x)
			ret := floats.Dot(mu, w)
			sum := floats.Sum(w)
			for i := 0; i < n; i++ {
				g := 2*penaltyWeight*(sum-1) + 2*penaltyWeight*(ret-target)*mu[i]
				for j := 0; j < n; j++ {
					g += 2 * cov.At(i, j) * w[j]
				}
				grad[i] = g
			}
		},
	}
}

// projectToUnitBox clamps every weight to [0, 1].
func projectToUnitBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0.0, math.Min(1.0, x[i]))
	}
	return proj
}

// quadraticForm computes w'Σw.
func quadraticForm(w []float64, stats *Statistics) float64 {
	var total float64
	n := len(w)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			total += w[i] * w[j] * stats.Cov.At(i, j)
		}
	}
	return total
}

// finalizeWeights maps the raw solver point into the feasible set:
// clamp to [0, 1], normalize to sum 1, drop negative dust from the
// division, renormalize.
func finalizeWeights(x []float64) []float64 {
	w := projectToUnitBox(x)
	sum := floats.Sum(w)

	weights := make([]float64, len(w))
	for i := range w {
		weights[i] = math.Max(0.0, w[i]/math.Max(sum, 1e-10))
	}
	if s := floats.Sum(weights); s > 0 {
		floats.Scale(1/s, weights)
	}
	return weights
}
