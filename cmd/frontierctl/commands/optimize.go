package commands

import (
	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/modules/optimization"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize [tickers...]",
	Short: "Compute optimal portfolio weights for a set of tickers",
	Long: `Fetches price history for the given tickers and solves for the
portfolio weights that optimize the chosen objective.

Methods:
  min_variance  minimize portfolio variance
  max_sharpe    maximize the Sharpe ratio

Example:
  frontierctl optimize AAPL MSFT GOOG
  frontierctl optimize AAPL MSFT --method min_variance
  frontierctl optimize AAPL MSFT --start 2021-01-01 --end 2023-12-31`,
	Args: cobra.MinimumNArgs(2),
	RunE: runOptimize,
}

var (
	// Flags
	optimizeMethod   string
	optimizeStart    string
	optimizeEnd      string
	optimizeRiskFree float64
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVar(&optimizeMethod, "method", "max_sharpe", "optimization method (min_variance|max_sharpe)")
	optimizeCmd.Flags().StringVar(&optimizeStart, "start", "", "history start date (YYYY-MM-DD, default: 3 years back)")
	optimizeCmd.Flags().StringVar(&optimizeEnd, "end", "", "history end date (YYYY-MM-DD, default: today)")
	optimizeCmd.Flags().Float64Var(&optimizeRiskFree, "risk-free", 0, "annual risk-free rate for Sharpe ratios (overrides RISK_FREE_RATE)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	mode, err := optimization.ParseMode(optimizeMethod)
	if err != nil {
		return err
	}

	start, end, err := parseDates(optimizeStart, optimizeEnd)
	if err != nil {
		return err
	}

	var riskFree *float64
	if cmd.Flags().Changed("risk-free") {
		riskFree = &optimizeRiskFree
	}

	svcs, err := initServices(riskFree)
	if err != nil {
		return err
	}
	defer svcs.Close()

	result, err := svcs.optimization.Optimize(cmd.Context(), args, mode, start, end)
	if err != nil {
		return err
	}

	return printJSON(result)
}
