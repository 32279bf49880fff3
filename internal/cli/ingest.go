package cli

import (
	"github.com/spf13/cobra"

	"book-comps/internal/app"
)

var (
	ingestListingsPath string
	ingestMetadataPath string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest raw listing and metadata batches from JSON files",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.IngestOptions{
			ListingsPath: ingestListingsPath,
			MetadataPath: ingestMetadataPath,
		}

		return getApp().Ingest(cmd.Context(), opts)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestListingsPath, "listings", "", "Path to a JSON file of raw marketplace listings")
	ingestCmd.Flags().StringVar(&ingestMetadataPath, "metadata", "", "Path to a JSON file of per-source metadata payloads")
}
