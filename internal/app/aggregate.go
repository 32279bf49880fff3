package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"book-comps/internal/bookmeta"
)

// Aggregate recomputes statistics snapshots for one ISBN.
func (a *App) Aggregate(ctx context.Context, opts AggregateOptions) error {
	if err := bookmeta.RequireISBN(opts.ISBN); err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot aggregate")
	}
	if closeStore != nil {
		defer closeStore()
	}

	aggregator := a.newAggregator(store)

	if opts.AllPlatforms {
		snapshots, err := aggregator.AggregateAll(ctx, opts.ISBN, opts.LookbackDays)
		if err != nil {
			return err
		}

		platforms := make([]string, 0, len(snapshots))
		for platform := range snapshots {
			platforms = append(platforms, platform)
		}
		sort.Strings(platforms)

		for _, platform := range platforms {
			printSnapshot(snapshots[platform])
		}
		return nil
	}

	snapshot, err := aggregator.Aggregate(ctx, opts.ISBN, opts.Platform, opts.LookbackDays)
	if err != nil {
		return err
	}
	printSnapshot(snapshot)
	return nil
}

func printSnapshot(snapshot bookmeta.StatisticsSnapshot) {
	fmt.Fprintf(os.Stdout, "%s [%s, %dd]: total=%d singles=%d lots=%d",
		snapshot.ISBN, snapshot.Platform, snapshot.LookbackDays,
		snapshot.TotalCount, snapshot.SingleCount, snapshot.LotCount)

	if snapshot.MedianPrice != nil {
		fmt.Fprintf(os.Stdout, " min=%s median=%s max=%s",
			formatNullDecimal(snapshot.MinPrice),
			formatNullDecimal(snapshot.MedianPrice),
			formatNullDecimal(snapshot.MaxPrice))
	}
	if snapshot.SellThrough != nil {
		fmt.Fprintf(os.Stdout, " sell_through=%s", snapshot.SellThrough.String())
	}
	if snapshot.SalesPerMonth != nil {
		fmt.Fprintf(os.Stdout, " sales_per_month=%s", snapshot.SalesPerMonth.String())
	}
	fmt.Fprintf(os.Stdout, " completeness=%.2f\n", snapshot.Completeness)
}
