package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

// recordViewer is the slice of the store the show command reads from.
type recordViewer interface {
	GetRecord(ctx context.Context, isbn string) (*bookmeta.CanonicalBookRecord, error)
	ListRecords(ctx context.Context, limit int) ([]bookmeta.CanonicalBookRecord, error)
	GetSnapshot(ctx context.Context, isbn, platform string, lookbackDays int) (bookmeta.StatisticsSnapshot, bool, error)
}

// Show prints canonical records, either a single detailed record by ISBN or
// a table of the most recently updated ones.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show records")
	}
	if closeStore != nil {
		defer closeStore()
	}

	return a.showRecords(ctx, os.Stdout, store, opts)
}

func (a *App) showRecords(ctx context.Context, w io.Writer, store recordViewer, opts ShowOptions) error {
	if opts.ISBN != "" {
		record, err := store.GetRecord(ctx, opts.ISBN)
		if err != nil {
			return err
		}
		if record == nil {
			fmt.Fprintf(w, "no record for %s\n", opts.ISBN)
			return nil
		}
		printRecord(w, record)

		snapshot, found, err := store.GetSnapshot(ctx, opts.ISBN, bookmeta.PlatformAll, a.Config.Stats.LookbackDays)
		if err != nil {
			return err
		}
		printSnapshotStatus(w, snapshot, found, a.Config.Stats.LookbackDays)
		return nil
	}

	records, err := store.ListRecords(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no records found")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ISBN\tTitle\tActive Median\tSold Median\tScore\tEligible\tUpdated (UTC)")

	for i := range records {
		record := &records[i]
		soldMedian := ""
		if record.SoldComps != nil {
			soldMedian = formatNullDecimal(record.SoldComps.Median)
			if record.SoldComps.IsEstimate {
				soldMedian += " (est)"
			}
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%.2f\t%t\t%s\n",
			record.ISBN,
			formatNullString(record.Title),
			formatNullDecimal(record.ActiveMedian),
			soldMedian,
			record.QualityScore,
			record.TrainingEligible,
			record.UpdatedAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
	return nil
}

func printRecord(w io.Writer, record *bookmeta.CanonicalBookRecord) {
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	row := func(label, value string) {
		fmt.Fprintf(writer, "%s\t%s\n", label, value)
	}

	row("ISBN", record.ISBN)
	row("Title", formatNullString(record.Title))
	row("Authors", strings.Join(record.Authors, "; "))
	row("Publisher", formatNullString(record.Publisher))
	if record.PageCount != nil {
		row("Pages", fmt.Sprintf("%d", *record.PageCount))
	}
	row("Cover", formatNullString(record.CoverType))
	if record.Signed != nil {
		row("Signed", fmt.Sprintf("%t", *record.Signed))
	}
	row("Printing", formatNullString(record.Printing))
	row("Edition", formatNullString(record.Edition))
	row("Active Median", formatNullDecimal(record.ActiveMedian))
	if record.ActiveCount != nil {
		row("Active Count", fmt.Sprintf("%d", *record.ActiveCount))
	}

	if comps := record.SoldComps; comps != nil {
		summary := fmt.Sprintf("count=%d min=%s median=%s max=%s",
			comps.Count,
			formatNullDecimal(comps.Min),
			formatNullDecimal(comps.Median),
			formatNullDecimal(comps.Max))
		if comps.IsEstimate {
			summary += " (estimated from " + comps.Source + ")"
		}
		row("Sold Comps", summary)
	}

	row("Quality Score", fmt.Sprintf("%.2f", record.QualityScore))
	row("Training Eligible", fmt.Sprintf("%t", record.TrainingEligible))
	row("Updated", record.UpdatedAt.UTC().Format(time.RFC3339))

	keys := make([]string, 0, len(record.Provenance))
	for key := range record.Provenance {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)
	for _, key := range keys {
		prov := record.Provenance[bookmeta.FieldKey(key)]
		row("Source: "+key, fmt.Sprintf("%s @ %s", prov.Source, prov.FetchedAt.UTC().Format(time.RFC3339)))
	}

	writer.Flush()
}

// printSnapshotStatus distinguishes a computed snapshot with no priced
// sales from one that was never computed at all.
func printSnapshotStatus(w io.Writer, snapshot bookmeta.StatisticsSnapshot, found bool, lookbackDays int) {
	if !found {
		fmt.Fprintf(w, "Snapshot\tnot computed (%dd window); run aggregate\n", lookbackDays)
		return
	}

	line := fmt.Sprintf("total=%d singles=%d lots=%d",
		snapshot.TotalCount, snapshot.SingleCount, snapshot.LotCount)
	if snapshot.MedianPrice != nil {
		line += fmt.Sprintf(" median=%s", formatNullDecimal(snapshot.MedianPrice))
	} else {
		line += " (no priced sales)"
	}
	line += " computed " + snapshot.ComputedAt.UTC().Format(time.RFC3339)
	fmt.Fprintf(w, "Snapshot [%s, %dd]\t%s\n", snapshot.Platform, snapshot.LookbackDays, line)
}

func formatNullString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatNullDecimal(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}
