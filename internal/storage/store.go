package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"book-comps/internal/bookmeta"
	"book-comps/internal/config"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

// ListingStore defines deduplicated listing persistence.
type ListingStore interface {
	UpsertListing(ctx context.Context, listing bookmeta.Listing) (inserted bool, err error)
	ListSoldListings(ctx context.Context, isbn, platform string, since time.Time) ([]bookmeta.Listing, error)
	ListListingsByISBN(ctx context.Context, isbn string) ([]bookmeta.Listing, error)
	CountActiveListings(ctx context.Context, isbn, platform string) (int, error)
}

// RecordStore defines canonical record persistence.
type RecordStore interface {
	GetRecord(ctx context.Context, isbn string) (*bookmeta.CanonicalBookRecord, error)
	UpsertRecord(ctx context.Context, record *bookmeta.CanonicalBookRecord) error
	ListRecords(ctx context.Context, limit int) ([]bookmeta.CanonicalBookRecord, error)
}

// SnapshotStore defines statistics snapshot persistence.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, snapshot bookmeta.StatisticsSnapshot) error
	GetSnapshot(ctx context.Context, isbn, platform string, lookbackDays int) (bookmeta.StatisticsSnapshot, bool, error)
	ListExpiredSnapshots(ctx context.Context, now time.Time, limit int) ([]bookmeta.StatisticsSnapshot, error)
}

// Store aggregates access to listings, canonical records, and snapshots.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

var (
	_ ListingStore  = (*Store)(nil)
	_ RecordStore   = (*Store)(nil)
	_ SnapshotStore = (*Store)(nil)
)
