package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"book-comps/internal/staleness"
)

// Stale lists records whose fields are past their freshness window, most
// overdue first, so refresh jobs know what to fetch next.
func (a *App) Stale(ctx context.Context, opts StaleOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot list stale records")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecords(ctx, 0)
	if err != nil {
		return err
	}

	candidates := staleness.RefreshCandidates(records, time.Now().UTC(), a.stalenessWindows())
	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}
	if len(candidates) == 0 {
		fmt.Fprintln(os.Stdout, "all tracked fields are fresh")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ISBN\tField\tLast Fetched (UTC)\tWindow\tOverdue")

	for _, candidate := range candidates {
		fetched := "never"
		overdue := "-"
		if !candidate.FetchedAt.IsZero() {
			fetched = candidate.FetchedAt.UTC().Format(time.RFC3339)
			overdue = candidate.Overdue.Round(time.Minute).String()
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			candidate.ISBN,
			candidate.Field,
			fetched,
			candidate.Window,
			overdue,
		)
	}

	writer.Flush()
	return nil
}
