package optimization

import "github.com/rs/zerolog"

const defaultMaxIterations = 1000

// Engine runs the numerical side of portfolio optimization. The
// risk-free rate and iteration cap are fixed at construction; an
// Engine holds no per-request state and is safe for concurrent use.
type Engine struct {
	riskFreeRate  float64
	maxIterations int
	log           zerolog.Logger
}

// NewEngine creates an optimization engine. riskFreeRate is annual.
func NewEngine(riskFreeRate float64, maxIterations int, log zerolog.Logger) *Engine {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Engine{
		riskFreeRate:  riskFreeRate,
		maxIterations: maxIterations,
		log:           log.With().Str("component", "optimizer").Logger(),
	}
}
