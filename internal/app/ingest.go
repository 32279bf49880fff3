package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
	"book-comps/internal/ingest"
	"book-comps/internal/merge"
	"book-comps/internal/normalize"
)

// metadataPayload is the on-disk form of one source's partial book view.
type metadataPayload struct {
	ISBN      string    `json:"isbn"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`

	Title     *string  `json:"title,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Publisher *string  `json:"publisher,omitempty"`
	PageCount *int     `json:"page_count,omitempty"`
	CoverType *string  `json:"cover_type,omitempty"`
	Signed    *bool    `json:"signed,omitempty"`
	Printing  *string  `json:"printing,omitempty"`
	Edition   *string  `json:"edition,omitempty"`

	Market       json.RawMessage  `json:"market,omitempty"`
	ActiveMedian *decimal.Decimal `json:"active_median,omitempty"`
	ActiveCount  *int             `json:"active_count,omitempty"`

	SoldComps *soldCompsPayload `json:"sold_comps,omitempty"`
}

type soldCompsPayload struct {
	Count  int              `json:"count"`
	Min    *decimal.Decimal `json:"min,omitempty"`
	Median *decimal.Decimal `json:"median,omitempty"`
	Max    *decimal.Decimal `json:"max,omitempty"`
	Source string           `json:"source,omitempty"`
}

func (p metadataPayload) toIncoming() merge.Incoming {
	in := merge.Incoming{
		ISBN:         p.ISBN,
		Source:       p.Source,
		FetchedAt:    p.FetchedAt,
		Title:        p.Title,
		Authors:      p.Authors,
		Publisher:    p.Publisher,
		PageCount:    p.PageCount,
		CoverType:    p.CoverType,
		Signed:       p.Signed,
		Printing:     p.Printing,
		Edition:      p.Edition,
		Market:       p.Market,
		ActiveMedian: p.ActiveMedian,
		ActiveCount:  p.ActiveCount,
	}
	if p.SoldComps != nil {
		source := p.SoldComps.Source
		if source == "" {
			source = p.Source
		}
		in.SoldComps = &bookmeta.SoldComps{
			Count:  p.SoldComps.Count,
			Min:    p.SoldComps.Min,
			Median: p.SoldComps.Median,
			Max:    p.SoldComps.Max,
			Source: source,
		}
	}
	return in
}

// Ingest runs a batch ingestion over listing and/or metadata files.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	if opts.ListingsPath == "" && opts.MetadataPath == "" {
		return errors.New("at least one of --listings or --metadata must be provided")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot ingest")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store, nil)

	if opts.ListingsPath != "" {
		var raws []normalize.RawListing
		if err := readJSONFile(opts.ListingsPath, &raws); err != nil {
			return fmt.Errorf("read listings file: %w", err)
		}

		summary := svc.IngestListings(ctx, raws)
		printSummary("listings", summary)
	}

	if opts.MetadataPath != "" {
		var payloads []metadataPayload
		if err := readJSONFile(opts.MetadataPath, &payloads); err != nil {
			return fmt.Errorf("read metadata file: %w", err)
		}

		incoming := make([]merge.Incoming, 0, len(payloads))
		for _, payload := range payloads {
			incoming = append(incoming, payload.toIncoming())
		}

		summary := svc.IngestMetadata(ctx, incoming)
		printSummary("metadata", summary)
	}

	return nil
}

func printSummary(kind string, summary *ingest.Summary) {
	fmt.Fprintf(os.Stdout, "%s batch %s: succeeded=%d skipped=%d failed=%d\n",
		kind, summary.RunID, summary.Succeeded, summary.Skipped, summary.Failed)
	for _, failure := range summary.Failures {
		fmt.Fprintf(os.Stdout, "  failed %s: %s\n", failure.Identifier, failure.Reason)
	}
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
