package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"book-comps/internal/app"
)

var (
	showISBN  string
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display canonical book records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showISBN == "" && showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			ISBN:  showISBN,
			Limit: showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showISBN, "isbn", "", "Show one record in detail")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of records to display")
}
