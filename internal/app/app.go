package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"book-comps/internal/config"
	"book-comps/internal/estimate"
	"book-comps/internal/events"
	"book-comps/internal/ingest"
	"book-comps/internal/normalize"
	"book-comps/internal/scoring"
	"book-comps/internal/staleness"
	"book-comps/internal/stats"
	"book-comps/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newRegistry() *normalize.Registry {
	opts := normalize.DefaultOptions()
	if a.Config.Ingest.MinPrice > 0 {
		opts.MinPrice = decimal.NewFromFloat(a.Config.Ingest.MinPrice)
	}
	if a.Config.Ingest.MaxPrice > 0 {
		opts.MaxPrice = decimal.NewFromFloat(a.Config.Ingest.MaxPrice)
	}
	if a.Config.Ingest.DefaultCurrency != "" {
		opts.DefaultCurrency = a.Config.Ingest.DefaultCurrency
	}
	return normalize.NewRegistry(opts)
}

func (a *App) newEstimator() *estimate.Estimator {
	ratios := estimate.DefaultRatios()
	if a.Config.Estimator.MedianRatio > 0 {
		ratios.Median = decimal.NewFromFloat(a.Config.Estimator.MedianRatio)
	}
	if a.Config.Estimator.MinRatio > 0 {
		ratios.Min = decimal.NewFromFloat(a.Config.Estimator.MinRatio)
	}
	if a.Config.Estimator.MaxRatio > 0 {
		ratios.Max = decimal.NewFromFloat(a.Config.Estimator.MaxRatio)
	}
	return estimate.New(ratios)
}

func (a *App) newScorer() *scoring.Scorer {
	cfg := scoring.DefaultConfig()
	if a.Config.Scoring.CompsCap > 0 {
		cfg.CompsCap = a.Config.Scoring.CompsCap
	}
	if a.Config.Scoring.CompsWeight > 0 {
		cfg.CompsWeight = a.Config.Scoring.CompsWeight
	}
	if a.Config.Scoring.CompletenessWeight > 0 {
		cfg.CompletenessWeight = a.Config.Scoring.CompletenessWeight
	}
	if a.Config.Scoring.ConsistencyWeight > 0 {
		cfg.ConsistencyWeight = a.Config.Scoring.ConsistencyWeight
	}
	if a.Config.Scoring.MaxSpread > 0 {
		cfg.MaxSpread = a.Config.Scoring.MaxSpread
	}
	if a.Config.Scoring.MinComps > 0 {
		cfg.MinComps = a.Config.Scoring.MinComps
	}
	if a.Config.Scoring.MinMedian > 0 {
		cfg.MinMedian = decimal.NewFromFloat(a.Config.Scoring.MinMedian)
	}
	if a.Config.Scoring.MinScore > 0 {
		cfg.MinScore = a.Config.Scoring.MinScore
	}
	return scoring.New(cfg)
}

func (a *App) newService(store *storage.Store, registry *events.Registry) *ingest.Service {
	return ingest.New(
		a.newRegistry(),
		store,
		store,
		a.newEstimator(),
		a.newScorer(),
		registry,
		ingest.Options{Workers: a.Config.Ingest.Workers},
		a.Logger,
	)
}

func (a *App) newAggregator(store *storage.Store) *stats.Aggregator {
	return stats.NewAggregator(store, store, stats.Options{
		LookbackDays:    a.Config.Stats.LookbackDays,
		RefreshInterval: a.Config.Stats.RefreshInterval,
		Platforms:       a.Config.Stats.Platforms,
	}, a.Logger)
}

func (a *App) stalenessWindows() staleness.Windows {
	windows := staleness.DefaultWindows()
	if a.Config.Staleness.Bibliographic > 0 {
		windows.Bibliographic = a.Config.Staleness.Bibliographic
	}
	if a.Config.Staleness.Market > 0 {
		windows.Market = a.Config.Staleness.Market
	}
	if a.Config.Staleness.SoldComps > 0 {
		windows.SoldComps = a.Config.Staleness.SoldComps
	}
	return windows
}

// IngestOptions configure a batch ingestion run.
type IngestOptions struct {
	ListingsPath string
	MetadataPath string
}

// AggregateOptions configure snapshot recomputation.
type AggregateOptions struct {
	ISBN         string
	Platform     string
	LookbackDays int
	AllPlatforms bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	ISBN  string
	Limit int
}

// StaleOptions configure the stale command.
type StaleOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting sold price history.
type ExportOptions struct {
	ISBN      string
	Platform  string
	From      *time.Time
	To        *time.Time
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
