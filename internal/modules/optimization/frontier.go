package optimization

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// frontierAttempt records the outcome of one target-return solve, so
// failures stay visible for diagnostics without aborting the sweep.
type frontierAttempt struct {
	target    float64
	point     FrontierPoint
	converged bool
	err       error
}

// Frontier sweeps nPoints evenly spaced target returns across
// [min(μ), max(μ)] and returns the achieved (risk, return) points,
// sorted ascending by risk. The sort is a contract: targets are spaced
// by return, and risk is not monotonic in return near the
// minimum-variance point.
//
// Targets whose solve fails or does not converge are skipped. An empty
// frontier is a valid result; the caller decides how to report it.
// The per-target solves are independent and run concurrently.
func (e *Engine) Frontier(ctx context.Context, stats *Statistics, nPoints int) []FrontierPoint {
	if nPoints < 1 {
		return []FrontierPoint{}
	}

	targets := make([]float64, nPoints)
	if nPoints == 1 {
		targets[0] = floats.Min(stats.Returns)
	} else {
		floats.Span(targets, floats.Min(stats.Returns), floats.Max(stats.Returns))
	}

	attempts := make([]frontierAttempt, nPoints)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, target := range targets {
		i, target := i, target // per-iteration copies: required for correctness before Go 1.22
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				attempts[i] = frontierAttempt{target: target, err: err}
				return nil
			}
			result, err := e.Solve(stats, ModeTargetReturn, &target)
			if err != nil {
				attempts[i] = frontierAttempt{target: target, err: err}
				return nil
			}
			attempts[i] = frontierAttempt{
				target:    target,
				point:     FrontierPoint{Risk: result.Risk, Return: result.ExpectedReturn},
				converged: result.Success,
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; outcomes live in attempts

	points := make([]FrontierPoint, 0, nPoints)
	skipped := 0
	for _, attempt := range attempts {
		if attempt.err != nil || !attempt.converged {
			skipped++
			e.log.Debug().
				Float64("target", attempt.target).
				Bool("converged", attempt.converged).
				Err(attempt.err).
				Msg("Skipping frontier point")
			continue
		}
		points = append(points, attempt.point)
	}
	if skipped > 0 {
		e.log.Warn().
			Int("skipped", skipped).
			Int("kept", len(points)).
			Msg("Some frontier targets did not solve")
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Risk < points[j].Risk })
	return points
}
