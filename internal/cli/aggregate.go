package cli

import (
	"github.com/spf13/cobra"

	"book-comps/internal/app"
)

var (
	aggregateISBN     string
	aggregatePlatform string
	aggregateLookback int
	aggregateAll      bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute sold price statistics for an ISBN",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AggregateOptions{
			ISBN:         aggregateISBN,
			Platform:     aggregatePlatform,
			LookbackDays: aggregateLookback,
			AllPlatforms: aggregateAll,
		}

		return getApp().Aggregate(cmd.Context(), opts)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateISBN, "isbn", "", "ISBN-13 to aggregate")
	aggregateCmd.Flags().StringVar(&aggregatePlatform, "platform", "", "Platform to aggregate (defaults to all platforms combined)")
	aggregateCmd.Flags().IntVar(&aggregateLookback, "lookback-days", 0, "Sold listing lookback window in days (defaults to config)")
	aggregateCmd.Flags().BoolVar(&aggregateAll, "per-platform", false, "Also recompute one snapshot per known platform")
	_ = aggregateCmd.MarkFlagRequired("isbn")
}
