package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"book-comps/internal/bookmeta"
	"book-comps/internal/storage"
)

// Options tune aggregation behaviour.
type Options struct {
	// LookbackDays bounds how far back sold listings are considered.
	LookbackDays int
	// RefreshInterval sets how long a snapshot stays fresh.
	RefreshInterval time.Duration
	// Platforms lists the per-platform aggregates computed by AggregateAll,
	// in addition to the cross-platform one.
	Platforms []string
}

// Aggregator recomputes statistics snapshots from stored listings.
type Aggregator struct {
	listings  storage.ListingStore
	snapshots storage.SnapshotStore
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAggregator constructs an Aggregator.
func NewAggregator(listings storage.ListingStore, snapshots storage.SnapshotStore, opts Options, logger zerolog.Logger) *Aggregator {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 365
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 24 * time.Hour
	}
	return &Aggregator{
		listings:  listings,
		snapshots: snapshots,
		opts:      opts,
		logger:    logger.With().Str("component", "aggregator").Logger(),
		now:       time.Now,
	}
}

// Aggregate recomputes and overwrites the snapshot for one
// (isbn, platform-or-all, lookback) key. The active-listing count for
// sell-through is read from the store; callers holding fresher counts can
// use AggregateWithActive instead.
func (a *Aggregator) Aggregate(ctx context.Context, isbn, platform string, lookbackDays int) (bookmeta.StatisticsSnapshot, error) {
	active, err := a.listings.CountActiveListings(ctx, isbn, platform)
	if err != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("count active listings: %w", err)
	}
	return a.AggregateWithActive(ctx, isbn, platform, lookbackDays, &active)
}

// AggregateWithActive recomputes a snapshot with a caller-supplied active
// count. A nil activeCount leaves sell-through null.
func (a *Aggregator) AggregateWithActive(ctx context.Context, isbn, platform string, lookbackDays int, activeCount *int) (bookmeta.StatisticsSnapshot, error) {
	if err := bookmeta.RequireISBN(isbn); err != nil {
		return bookmeta.StatisticsSnapshot{}, err
	}
	if lookbackDays <= 0 {
		lookbackDays = a.opts.LookbackDays
	}
	if platform == "" {
		platform = bookmeta.PlatformAll
	}

	now := a.now().UTC()
	since := now.AddDate(0, 0, -lookbackDays)

	listings, err := a.listings.ListSoldListings(ctx, isbn, platform, since)
	if err != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("list sold listings: %w", err)
	}

	snapshot := Compute(isbn, platform, lookbackDays, listings, activeCount, now, a.opts.RefreshInterval)

	if err := a.snapshots.UpsertSnapshot(ctx, snapshot); err != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("store snapshot: %w", err)
	}

	a.logger.Debug().
		Str("isbn", isbn).
		Str("platform", platform).
		Int("lookback_days", lookbackDays).
		Int("total", snapshot.TotalCount).
		Int("priced", snapshot.SingleCount).
		Msg("snapshot recomputed")

	return snapshot, nil
}

// AggregateAll recomputes the cross-platform snapshot plus one per known
// platform, mirroring how comparable-sales views consume them.
func (a *Aggregator) AggregateAll(ctx context.Context, isbn string, lookbackDays int) (map[string]bookmeta.StatisticsSnapshot, error) {
	results := make(map[string]bookmeta.StatisticsSnapshot, len(a.opts.Platforms)+1)

	snapshot, err := a.Aggregate(ctx, isbn, bookmeta.PlatformAll, lookbackDays)
	if err != nil {
		return nil, err
	}
	results[bookmeta.PlatformAll] = snapshot

	for _, platform := range a.opts.Platforms {
		snapshot, err := a.Aggregate(ctx, isbn, platform, lookbackDays)
		if err != nil {
			return nil, err
		}
		results[platform] = snapshot
	}
	return results, nil
}
