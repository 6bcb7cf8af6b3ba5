// Package formulas provides the pure financial math shared by the
// optimization engine: period changes, moment estimates, and
// annualization for daily data. Every function is stateless.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily statistics.
const TradingDaysPerYear = 252

// PeriodChanges converts a price series into fractional per-period
// changes: change[t] = price[t+1]/price[t] - 1. Periods whose base
// price is zero, negative, or NaN contribute a zero change, so a
// corrupt row cannot poison the downstream moments.
func PeriodChanges(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	changes := make([]float64, len(prices)-1)
	for t := 1; t < len(prices); t++ {
		prev, curr := prices[t-1], prices[t]
		if prev > 0 && !math.IsNaN(prev) && !math.IsNaN(curr) {
			changes[t-1] = curr/prev - 1
		}
	}
	return changes
}

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the sample covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// AnnualizedReturn scales the mean daily change to a yearly figure.
func AnnualizedReturn(dailyChanges []float64) float64 {
	return Mean(dailyChanges) * TradingDaysPerYear
}

// AnnualizedCovariance scales the sample covariance of daily changes
// to a yearly figure.
func AnnualizedCovariance(x, y []float64) float64 {
	return Covariance(x, y) * TradingDaysPerYear
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns x sqrt(252 trading days)
func AnnualizedVolatility(dailyChanges []float64) float64 {
	if len(dailyChanges) == 0 {
		return 0
	}
	return StdDev(dailyChanges) * math.Sqrt(TradingDaysPerYear)
}
