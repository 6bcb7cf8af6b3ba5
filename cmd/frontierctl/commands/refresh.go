package commands

import (
	"github.com/spf13/cobra"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh stale cached prices",
	Long: `Re-fetches price history for every cached symbol whose last fetch
is older than the cache TTL. The server runs this on a schedule; the
command exists for manual refreshes.

Example:
  frontierctl refresh`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	svcs, err := initServices(nil)
	if err != nil {
		return err
	}
	defer svcs.Close()

	refreshed, err := svcs.marketData.RefreshStale(cmd.Context())
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"refreshed": refreshed,
	})
}
