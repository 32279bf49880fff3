// Package scheduler drives the periodic snapshot refresh loop. Each pass
// hands the refresh function the pass timestamp and the configured batch
// limit, and the loop owns per-pass outcome logging so callers only report
// counts.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefreshFunc performs one refresh pass over at most limit expired
// snapshots and reports how many were recomputed and how many failed.
type RefreshFunc func(ctx context.Context, asOf time.Time, limit int) (refreshed, failed int, err error)

// Options tune the refresh loop.
type Options struct {
	Interval      time.Duration
	AlignToBucket bool
	StartupDelay  time.Duration
	BatchLimit    int
}

// Loop repeatedly invokes a RefreshFunc on an interval, optionally aligned
// to wall-clock buckets so restarts land on the same schedule.
type Loop struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a refresh loop.
func New(opts Options, logger zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		panic("refresh interval must be positive")
	}
	return &Loop{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks until ctx is cancelled, running one refresh pass per interval.
// A failing pass is logged and does not stop the loop.
func (l *Loop) Run(ctx context.Context, refresh RefreshFunc) error {
	if err := sleepUntil(ctx, time.Now().UTC().Add(l.opts.StartupDelay)); err != nil {
		return err
	}

	next := l.nextRun(time.Now().UTC())
	for {
		l.logger.Debug().Time("next_pass", next).Msg("waiting for next refresh pass")
		if err := sleepUntil(ctx, next); err != nil {
			return err
		}

		asOf := next
		if l.opts.AlignToBucket {
			asOf = next.Truncate(l.opts.Interval)
		}

		refreshed, failed, err := refresh(ctx, asOf, l.opts.BatchLimit)
		if err != nil {
			l.logger.Error().Err(err).Time("as_of", asOf).Msg("refresh pass failed")
		} else {
			l.logger.Info().
				Time("as_of", asOf).
				Int("refreshed", refreshed).
				Int("failed", failed).
				Msg("refresh pass complete")
		}

		next = l.nextRun(time.Now().UTC())
	}
}

// nextRun picks the next pass time. Aligned loops truncate to the interval
// grid so every process refreshes the same buckets; unaligned loops just
// wait one interval from now.
func (l *Loop) nextRun(now time.Time) time.Time {
	if !l.opts.AlignToBucket {
		return now.Add(l.opts.Interval)
	}
	next := now.Truncate(l.opts.Interval)
	for !next.After(now) {
		next = next.Add(l.opts.Interval)
	}
	return next
}

func sleepUntil(ctx context.Context, t time.Time) error {
	delay := time.Until(t)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
