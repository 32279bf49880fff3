package cli

import (
	"github.com/spf13/cobra"

	"book-comps/internal/app"
)

var (
	staleLimit int
)

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List record fields past their freshness window",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.StaleOptions{
			Limit: staleLimit,
		}

		return getApp().Stale(cmd.Context(), opts)
	},
}

func init() {
	staleCmd.Flags().IntVar(&staleLimit, "limit", 50, "Maximum number of stale fields to list (0 for all)")
}
