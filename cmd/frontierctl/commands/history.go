package commands

import (
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent optimization runs",
	Long: `Lists the most recent recorded optimization and frontier runs,
newest first.

Example:
  frontierctl history
  frontierctl history --limit 50`,
	RunE: runHistory,
}

var (
	// Flags
	historyLimit int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	svcs, err := initServices(nil)
	if err != nil {
		return err
	}
	defer svcs.Close()

	runs, err := svcs.optimization.History(historyLimit)
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
