package formulas

// SharpeRatio calculates the risk-adjusted excess return:
//
//	Sharpe = (Return - Risk-free Rate) / Risk
//
// Return, risk, and the risk-free rate must share the same horizon
// (annualized throughout this codebase). A portfolio with zero risk
// reports a Sharpe of 0 rather than dividing by zero.
func SharpeRatio(ret, risk, riskFreeRate float64) float64 {
	if risk > 0 {
		return (ret - riskFreeRate) / risk
	}
	return 0
}
