// Package ingest drives the batch pipeline: normalize raw listings into the
// listing store, and merge metadata payloads into canonical records with
// re-scoring. Each item commits as its own atomic unit; a mid-batch failure
// loses at most that item's progress.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"book-comps/internal/bookmeta"
	"book-comps/internal/estimate"
	"book-comps/internal/events"
	"book-comps/internal/merge"
	"book-comps/internal/normalize"
	"book-comps/internal/scoring"
	"book-comps/internal/storage"
)

// Options tune batch processing.
type Options struct {
	// Workers bounds the ingestion worker pool.
	Workers int
}

// Service orchestrates normalization, merging, scoring, and persistence.
type Service struct {
	adapters  *normalize.Registry
	listings  storage.ListingStore
	records   storage.RecordStore
	estimator *estimate.Estimator
	scorer    *scoring.Scorer
	registry  *events.Registry
	logger    zerolog.Logger
	opts      Options
	now       func() time.Time
}

// New constructs the ingestion service. The events registry may be nil when
// no subscriber cares about record updates.
func New(adapters *normalize.Registry, listings storage.ListingStore, records storage.RecordStore, estimator *estimate.Estimator, scorer *scoring.Scorer, registry *events.Registry, opts Options, logger zerolog.Logger) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Service{
		adapters:  adapters,
		listings:  listings,
		records:   records,
		estimator: estimator,
		scorer:    scorer,
		registry:  registry,
		logger:    logger.With().Str("component", "ingest").Logger(),
		opts:      opts,
		now:       time.Now,
	}
}

// IngestListings normalizes and upserts a batch of raw listing payloads.
// Malformed or identifier-less payloads are skipped, storage failures mark
// the single item failed; the batch always runs to completion.
func (s *Service) IngestListings(ctx context.Context, raws []normalize.RawListing) *Summary {
	summary := &Summary{RunID: uuid.NewString()}
	logger := s.logger.With().Str("run_id", summary.RunID).Logger()

	jobs := make(chan normalize.RawListing)
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range jobs {
				s.ingestListing(ctx, raw, summary, logger)
			}
		}()
	}

	for _, raw := range raws {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return summary
		case jobs <- raw:
		}
	}
	close(jobs)
	wg.Wait()

	logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Msg("listing batch complete")

	return summary
}

func (s *Service) ingestListing(ctx context.Context, raw normalize.RawListing, summary *Summary, logger zerolog.Logger) {
	listing, err := s.adapters.Normalize(raw, s.now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, normalize.ErrMalformedListing),
		errors.Is(err, normalize.ErrUnknownPlatform),
		errors.Is(err, bookmeta.ErrMissingIdentifier):
		summary.skip()
		logger.Warn().Err(err).Str("url", raw.URL).Msg("listing skipped")
		return
	default:
		summary.fail(raw.ISBN, err.Error())
		logger.Error().Err(err).Str("url", raw.URL).Msg("listing normalization failed")
		return
	}

	inserted, err := s.listings.UpsertListing(ctx, listing)
	if err != nil {
		summary.fail(listing.ISBN, err.Error())
		logger.Error().Err(err).
			Str("platform", listing.Platform).
			Str("listing_id", listing.ListingID).
			Msg("listing upsert failed")
		return
	}
	summary.succeed(inserted)
}

// IngestMetadata merges a batch of per-source metadata payloads into
// canonical records and re-scores each touched record. Payloads sharing an
// ISBN are applied sequentially so concurrent merges never race on one key;
// distinct ISBNs run across the worker pool.
func (s *Service) IngestMetadata(ctx context.Context, payloads []merge.Incoming) *Summary {
	summary := &Summary{RunID: uuid.NewString()}
	logger := s.logger.With().Str("run_id", summary.RunID).Logger()

	groups := make(map[string][]merge.Incoming)
	order := make([]string, 0, len(payloads))
	for _, payload := range payloads {
		if err := bookmeta.RequireISBN(payload.ISBN); err != nil {
			summary.skip()
			logger.Warn().Str("isbn", payload.ISBN).Str("source", payload.Source).Msg("payload rejected: missing identifier")
			continue
		}
		if _, seen := groups[payload.ISBN]; !seen {
			order = append(order, payload.ISBN)
		}
		groups[payload.ISBN] = append(groups[payload.ISBN], payload)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for isbn := range jobs {
				s.mergeGroup(ctx, isbn, groups[isbn], summary, logger)
			}
		}()
	}

	for _, isbn := range order {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return summary
		case jobs <- isbn:
		}
	}
	close(jobs)
	wg.Wait()

	logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("metadata batch complete")

	return summary
}

// mergeGroup applies every payload for one ISBN, then commits the final
// record once. The merge itself is pure; only the commit touches the store.
func (s *Service) mergeGroup(ctx context.Context, isbn string, payloads []merge.Incoming, summary *Summary, logger zerolog.Logger) {
	record, err := s.records.GetRecord(ctx, isbn)
	if err != nil {
		summary.fail(isbn, err.Error())
		logger.Error().Err(err).Str("isbn", isbn).Msg("load record failed")
		return
	}

	now := s.now().UTC()
	created := record == nil
	var applied []bookmeta.FieldKey

	for _, payload := range payloads {
		result, mergeErr := merge.Apply(record, payload, now)
		if mergeErr != nil {
			summary.fail(isbn, mergeErr.Error())
			logger.Error().Err(mergeErr).Str("isbn", isbn).Msg("merge failed")
			return
		}
		if len(result.Stale) > 0 {
			logger.Debug().
				Str("isbn", isbn).
				Str("source", payload.Source).
				Int("stale_fields", len(result.Stale)).
				Msg("stale values ignored")
		}
		merged := result.Record
		record = &merged
		applied = append(applied, result.Applied...)
	}

	if s.estimator != nil {
		if comps, ok := s.estimator.Estimate(record); ok {
			record.SoldComps = comps
			logger.Debug().Str("isbn", isbn).Msg("sold comps estimated from active listings")
		}
	}

	record.QualityScore, record.TrainingEligible = s.scorer.Evaluate(record)

	if err := s.records.UpsertRecord(ctx, record); err != nil {
		summary.fail(isbn, err.Error())
		logger.Error().Err(err).Str("isbn", isbn).Msg("record upsert failed")
		return
	}
	summary.succeed(created)

	if s.registry != nil && len(applied) > 0 {
		s.registry.Publish(ctx, events.RecordUpdate{
			ISBN:             isbn,
			QualityScore:     record.QualityScore,
			TrainingEligible: record.TrainingEligible,
			AppliedFields:    applied,
			OccurredAt:       now,
		})
	}
}
