package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [ticker]",
	Short: "Check whether a ticker has usable price data",
	Long: `Probes the data source for recent closes of the given ticker.

Example:
  frontierctl validate AAPL
  frontierctl validate BOGUS123`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(strings.TrimSpace(args[0]))
	if ticker == "" {
		return fmt.Errorf("ticker must not be empty")
	}

	svcs, err := initServices(nil)
	if err != nil {
		return err
	}
	defer svcs.Close()

	valid, message := svcs.marketData.ValidateTicker(cmd.Context(), ticker)

	return printJSON(map[string]interface{}{
		"ticker":  ticker,
		"valid":   valid,
		"message": message,
	})
}
