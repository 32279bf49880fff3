package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"book-comps/internal/bookmeta"
	"book-comps/internal/events"
	"book-comps/internal/scheduler"
)

type snapshotLister interface {
	ListExpiredSnapshots(ctx context.Context, now time.Time, limit int) ([]bookmeta.StatisticsSnapshot, error)
}

type snapshotRefresher interface {
	Aggregate(ctx context.Context, isbn, platform string, lookbackDays int) (bookmeta.StatisticsSnapshot, error)
}

// Watch runs the long-lived refresh loop: on each tick, expired statistics
// snapshots are recomputed from the stored listings.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot watch")
	}
	if closeStore != nil {
		defer closeStore()
	}

	registry := events.NewRegistry(a.Logger)
	unsubscribe := registry.Subscribe(events.SubscriberFunc(func(ctx context.Context, update events.RecordUpdate) {
		a.Logger.Info().
			Str("isbn", update.ISBN).
			Float64("quality_score", update.QualityScore).
			Bool("training_eligible", update.TrainingEligible).
			Int("applied_fields", len(update.AppliedFields)).
			Msg("record updated")
	}))
	defer unsubscribe()

	aggregator := a.newAggregator(store)

	loop := scheduler.New(scheduler.Options{
		Interval:      a.Config.Refresh.Interval,
		AlignToBucket: a.Config.Refresh.AlignToBucket,
		StartupDelay:  a.Config.Refresh.StartupDelay,
		BatchLimit:    a.Config.Refresh.BatchLimit,
	}, a.Logger)

	a.Logger.Info().Msg("starting snapshot refresh loop")
	err = loop.Run(ctx, func(ctx context.Context, asOf time.Time, limit int) (int, int, error) {
		return a.refreshExpired(ctx, store, aggregator, asOf, limit)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("refresh loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("refresh loop stopped")
	return nil
}

func (a *App) refreshExpired(ctx context.Context, store snapshotLister, aggregator snapshotRefresher, now time.Time, limit int) (int, int, error) {
	expired, err := store.ListExpiredSnapshots(ctx, now, limit)
	if err != nil {
		return 0, 0, err
	}
	if len(expired) == 0 {
		a.Logger.Debug().Msg("no expired snapshots")
		return 0, 0, nil
	}

	refreshed := 0
	failed := 0
	for _, snapshot := range expired {
		select {
		case <-ctx.Done():
			return refreshed, failed, ctx.Err()
		default:
		}

		if _, err := aggregator.Aggregate(ctx, snapshot.ISBN, snapshot.Platform, snapshot.LookbackDays); err != nil {
			failed++
			a.Logger.Error().Err(err).
				Str("isbn", snapshot.ISBN).
				Str("platform", snapshot.Platform).
				Msg("snapshot refresh failed")
			continue
		}
		refreshed++
	}

	return refreshed, failed, nil
}
