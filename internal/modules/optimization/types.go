// Package optimization implements mean-variance portfolio optimization:
// return and covariance estimation from price history, constrained
// weight solving, and efficient frontier generation.
package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mode selects the objective of a solve.
type Mode int

const (
	// ModeMinVariance minimizes portfolio variance w'Σw.
	ModeMinVariance Mode = iota
	// ModeMaxSharpe maximizes the Sharpe ratio (μ'w - rf) / sqrt(w'Σw).
	ModeMaxSharpe
	// ModeTargetReturn minimizes variance subject to μ'w = target.
	// Used internally by the frontier sweep; not accepted on the wire.
	ModeTargetReturn
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeMinVariance:
		return "min_variance"
	case ModeMaxSharpe:
		return "max_sharpe"
	case ModeTargetReturn:
		return "target_return"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a request method name to a Mode. Only the two
// externally requestable modes are accepted; anything else, including
// "target_return", fails with UnknownMethodError.
func ParseMode(method string) (Mode, error) {
	switch method {
	case "min_variance":
		return ModeMinVariance, nil
	case "max_sharpe":
		return ModeMaxSharpe, nil
	default:
		return 0, &UnknownMethodError{Method: method}
	}
}

// PriceTable is a cleaned, date-aligned price history: one column per
// asset, one row per observation date, no missing values. Rows are
// ordered by ascending date. Tables are built once per request by the
// price provider and never mutated afterwards.
type PriceTable struct {
	Assets []string   // ordered asset identifiers, one per column
	Dates  []string   // ascending ISO dates, one per row
	Prices *mat.Dense // len(Dates) x len(Assets)
}

// NewPriceTable validates dimensions and wraps the inputs.
func NewPriceTable(assets, dates []string, prices *mat.Dense) (*PriceTable, error) {
	rows, cols := prices.Dims()
	if rows != len(dates) {
		return nil, fmt.Errorf("price matrix has %d rows, expected %d dates", rows, len(dates))
	}
	if cols != len(assets) {
		return nil, fmt.Errorf("price matrix has %d columns, expected %d assets", cols, len(assets))
	}
	return &PriceTable{Assets: assets, Dates: dates, Prices: prices}, nil
}

// Observations returns the number of price rows in the table.
func (t *PriceTable) Observations() int {
	rows, _ := t.Prices.Dims()
	return rows
}

// Statistics holds the annualized return and risk model estimated from
// a price table. Returns and Cov share the asset ordering of Assets.
type Statistics struct {
	Assets  []string
	Returns []float64     // annualized expected return per asset
	Cov     *mat.SymDense // annualized covariance matrix
}

// Performance captures the risk/return profile of a portfolio or a
// single asset.
type Performance struct {
	Return float64 `json:"expected_return"`
	Risk   float64 `json:"expected_risk"`
	Sharpe float64 `json:"sharpe_ratio"`
}

// Result is the outcome of a single solve. Weights always cover the
// full input asset set and sum to 1. Success is the convergence flag:
// a false value means the solver hit its iteration cap or stalled, and
// the weights are the best point found, not a converged optimum.
type Result struct {
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Risk           float64            `json:"expected_risk"`
	Sharpe         float64            `json:"sharpe_ratio"`
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
}

// FrontierPoint is one (risk, return) pair on the efficient frontier.
type FrontierPoint struct {
	Risk   float64 `json:"risk"`
	Return float64 `json:"return"`
}
