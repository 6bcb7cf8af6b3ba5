package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// frontierCmd represents the frontier command
var frontierCmd = &cobra.Command{
	Use:   "frontier [tickers...]",
	Short: "Compute the efficient frontier for a set of tickers",
	Long: `Sweeps target returns between the lowest and highest mean asset
return and solves a minimum-variance portfolio at each target. Points
that fail to converge are dropped; the rest are sorted by risk.

Example:
  frontierctl frontier AAPL MSFT GOOG
  frontierctl frontier AAPL MSFT GOOG --points 50
  frontierctl frontier AAPL MSFT --start 2021-01-01 --end 2023-12-31`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFrontier,
}

var (
	// Flags
	frontierPoints   int
	frontierStart    string
	frontierEnd      string
	frontierRiskFree float64
)

func init() {
	rootCmd.AddCommand(frontierCmd)

	frontierCmd.Flags().IntVar(&frontierPoints, "points", 30, "number of frontier points (2-100)")
	frontierCmd.Flags().StringVar(&frontierStart, "start", "", "history start date (YYYY-MM-DD, default: 3 years back)")
	frontierCmd.Flags().StringVar(&frontierEnd, "end", "", "history end date (YYYY-MM-DD, default: today)")
	frontierCmd.Flags().Float64Var(&frontierRiskFree, "risk-free", 0, "annual risk-free rate for Sharpe ratios (overrides RISK_FREE_RATE)")
}

func runFrontier(cmd *cobra.Command, args []string) error {
	if frontierPoints < 2 || frontierPoints > 100 {
		return fmt.Errorf("points must be between 2 and 100, got %d", frontierPoints)
	}

	start, end, err := parseDates(frontierStart, frontierEnd)
	if err != nil {
		return err
	}

	var riskFree *float64
	if cmd.Flags().Changed("risk-free") {
		riskFree = &frontierRiskFree
	}

	svcs, err := initServices(riskFree)
	if err != nil {
		return err
	}
	defer svcs.Close()

	result, err := svcs.optimization.Frontier(cmd.Context(), args, frontierPoints, start, end)
	if err != nil {
		return err
	}

	if len(result.Points) == 0 {
		return fmt.Errorf("no frontier points could be solved for the given assets")
	}

	return printJSON(result)
}
