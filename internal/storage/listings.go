package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

const (
	upsertListingSQL = `INSERT INTO listings (
        isbn,
        platform,
        listing_id,
        url,
        price,
        currency,
        sold_date,
        condition,
        watcher_count,
        is_lot,
        lot_size,
        snippet,
        first_seen_at,
        last_updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
    )
    ON CONFLICT (platform, listing_id) DO UPDATE
    SET
        price           = EXCLUDED.price,
        currency        = EXCLUDED.currency,
        sold_date       = COALESCE(EXCLUDED.sold_date, listings.sold_date),
        condition       = COALESCE(EXCLUDED.condition, listings.condition),
        watcher_count   = COALESCE(EXCLUDED.watcher_count, listings.watcher_count),
        snippet         = EXCLUDED.snippet,
        last_updated_at = EXCLUDED.last_updated_at
    RETURNING (xmax = 0) AS inserted;`

	listListingsColumns = `isbn,
        platform,
        listing_id,
        url,
        price,
        currency,
        sold_date,
        condition,
        watcher_count,
        is_lot,
        lot_size,
        snippet,
        first_seen_at,
        last_updated_at`

	listSoldListingsSQL = `SELECT ` + listListingsColumns + `
    FROM listings
    WHERE isbn = $1
      AND sold_date IS NOT NULL
      AND sold_date >= $2
      AND ($3 = '' OR platform = $3)
    ORDER BY sold_date DESC;`

	listListingsByISBNSQL = `SELECT ` + listListingsColumns + `
    FROM listings
    WHERE isbn = $1
    ORDER BY last_updated_at DESC;`

	countActiveListingsSQL = `SELECT COUNT(*)
    FROM listings
    WHERE isbn = $1
      AND sold_date IS NULL
      AND ($2 = '' OR platform = $2);`
)

// UpsertListing inserts a listing or updates the mutable fields of the row
// sharing its (platform, listing_id) key. The returned flag distinguishes
// inserts from updates for caller-side counters.
func (s *Store) UpsertListing(ctx context.Context, listing bookmeta.Listing) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	var price interface{}
	if listing.Price != nil {
		price = listing.Price.String()
	}

	var inserted bool
	scanErr := pool.QueryRow(ctx, upsertListingSQL,
		listing.ISBN,
		listing.Platform,
		listing.ListingID,
		listing.URL,
		price,
		listing.Currency,
		listing.SoldDate,
		listing.Condition,
		listing.WatcherCount,
		listing.IsLot,
		listing.LotSize,
		listing.Snippet,
		listing.FirstSeenAt,
		listing.UpdatedAt,
	).Scan(&inserted)
	if scanErr != nil {
		return false, fmt.Errorf("upsert listing: %w", scanErr)
	}
	return inserted, nil
}

// ListSoldListings returns sold listings for an ISBN within the lookback
// window. An empty platform matches every platform.
func (s *Store) ListSoldListings(ctx context.Context, isbn, platform string, since time.Time) ([]bookmeta.Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if platform == bookmeta.PlatformAll {
		platform = ""
	}

	rows, queryErr := pool.Query(ctx, listSoldListingsSQL, isbn, since, platform)
	if queryErr != nil {
		return nil, fmt.Errorf("list sold listings: %w", queryErr)
	}
	defer rows.Close()

	return scanListings(rows)
}

// ListListingsByISBN returns every stored listing for an ISBN, sold and active.
func (s *Store) ListListingsByISBN(ctx context.Context, isbn string) ([]bookmeta.Listing, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listListingsByISBNSQL, isbn)
	if queryErr != nil {
		return nil, fmt.Errorf("list listings: %w", queryErr)
	}
	defer rows.Close()

	return scanListings(rows)
}

// CountActiveListings counts currently-for-sale listings for the ISBN.
func (s *Store) CountActiveListings(ctx context.Context, isbn, platform string) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if platform == bookmeta.PlatformAll {
		platform = ""
	}

	var count int
	if scanErr := pool.QueryRow(ctx, countActiveListingsSQL, isbn, platform).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count active listings: %w", scanErr)
	}
	return count, nil
}

func scanListings(rows pgx.Rows) ([]bookmeta.Listing, error) {
	listings := make([]bookmeta.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return listings, nil
}

func scanListing(rows pgx.Rows) (bookmeta.Listing, error) {
	var (
		listing      bookmeta.Listing
		priceStr     sql.NullString
		soldDate     sql.NullTime
		condition    sql.NullString
		watcherCount sql.NullInt32
		lotSize      sql.NullInt32
	)

	if err := rows.Scan(
		&listing.ISBN,
		&listing.Platform,
		&listing.ListingID,
		&listing.URL,
		&priceStr,
		&listing.Currency,
		&soldDate,
		&condition,
		&watcherCount,
		&listing.IsLot,
		&lotSize,
		&listing.Snippet,
		&listing.FirstSeenAt,
		&listing.UpdatedAt,
	); err != nil {
		return bookmeta.Listing{}, err
	}

	if priceStr.Valid {
		price, err := decimal.NewFromString(priceStr.String)
		if err != nil {
			return bookmeta.Listing{}, fmt.Errorf("parse listing price: %w", err)
		}
		listing.Price = &price
	}
	if soldDate.Valid {
		date := soldDate.Time
		listing.SoldDate = &date
	}
	if condition.Valid {
		value := condition.String
		listing.Condition = &value
	}
	if watcherCount.Valid {
		value := int(watcherCount.Int32)
		listing.WatcherCount = &value
	}
	if lotSize.Valid {
		value := int(lotSize.Int32)
		listing.LotSize = &value
	}

	return listing, nil
}
