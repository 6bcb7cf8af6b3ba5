package optimization

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/pkg/formulas"
)

// TradingDaysPerYear is the annualization factor for daily statistics.
const TradingDaysPerYear = formulas.TradingDaysPerYear

// EstimateStatistics converts a price table into the annualized
// expected-return vector and covariance matrix the solvers consume.
// Expected returns are the mean daily fractional change scaled by 252;
// the covariance matrix is the sample covariance of those changes,
// scaled the same way. The matrix is built through mat.SymDense from
// its upper triangle, so symmetry holds exactly.
//
// Pure function of the table: no caching, no side effects.
func (e *Engine) EstimateStatistics(table *PriceTable) (*Statistics, error) {
	n := len(table.Assets)
	rows := table.Observations()
	if n < 2 || rows < 2 {
		return nil, &InsufficientDataError{Assets: n, Rows: rows}
	}

	// Daily fractional changes per asset. The first price row has no
	// prior period and is dropped.
	changes := make([][]float64, n)
	for j := 0; j < n; j++ {
		col := make([]float64, rows)
		for t := 0; t < rows; t++ {
			col[t] = table.Prices.At(t, j)
		}
		changes[j] = formulas.PeriodChanges(col)
	}

	mu := make([]float64, n)
	for j := 0; j < n; j++ {
		mu[j] = formulas.AnnualizedReturn(changes[j])
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, formulas.AnnualizedCovariance(changes[i], changes[j]))
		}
	}

	return &Statistics{Assets: table.Assets, Returns: mu, Cov: cov}, nil
}
