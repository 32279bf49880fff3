package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"book-comps/internal/bookmeta"
)

const (
	upsertSnapshotSQL = `INSERT INTO sold_statistics (
        isbn,
        platform,
        lookback_days,
        total_count,
        lot_count,
        single_count,
        min_price,
        median_price,
        max_price,
        avg_price,
        std_dev,
        p25_price,
        p75_price,
        active_count,
        sell_through,
        sales_per_month,
        completeness,
        computed_at,
        expires_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
    )
    ON CONFLICT (isbn, platform, lookback_days) DO UPDATE
    SET
        total_count     = EXCLUDED.total_count,
        lot_count       = EXCLUDED.lot_count,
        single_count    = EXCLUDED.single_count,
        min_price       = EXCLUDED.min_price,
        median_price    = EXCLUDED.median_price,
        max_price       = EXCLUDED.max_price,
        avg_price       = EXCLUDED.avg_price,
        std_dev         = EXCLUDED.std_dev,
        p25_price       = EXCLUDED.p25_price,
        p75_price       = EXCLUDED.p75_price,
        active_count    = EXCLUDED.active_count,
        sell_through    = EXCLUDED.sell_through,
        sales_per_month = EXCLUDED.sales_per_month,
        completeness    = EXCLUDED.completeness,
        computed_at     = EXCLUDED.computed_at,
        expires_at      = EXCLUDED.expires_at;`

	snapshotColumns = `isbn,
        platform,
        lookback_days,
        total_count,
        lot_count,
        single_count,
        min_price,
        median_price,
        max_price,
        avg_price,
        std_dev,
        p25_price,
        p75_price,
        active_count,
        sell_through,
        sales_per_month,
        completeness,
        computed_at,
        expires_at`

	getSnapshotSQL = `SELECT ` + snapshotColumns + `
    FROM sold_statistics
    WHERE isbn = $1 AND platform = $2 AND lookback_days = $3;`

	listExpiredSnapshotsSQL = `SELECT ` + snapshotColumns + `
    FROM sold_statistics
    WHERE expires_at <= $1
    ORDER BY expires_at
    LIMIT $2;`
)

// UpsertSnapshot overwrites the snapshot for its (isbn, platform, lookback)
// key wholesale; snapshots are never partially mutated.
func (s *Store) UpsertSnapshot(ctx context.Context, snapshot bookmeta.StatisticsSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertSnapshotSQL,
		snapshot.ISBN,
		snapshot.Platform,
		snapshot.LookbackDays,
		snapshot.TotalCount,
		snapshot.LotCount,
		snapshot.SingleCount,
		decimalArg(snapshot.MinPrice),
		decimalArg(snapshot.MedianPrice),
		decimalArg(snapshot.MaxPrice),
		decimalArg(snapshot.AvgPrice),
		decimalArg(snapshot.StdDev),
		decimalArg(snapshot.P25Price),
		decimalArg(snapshot.P75Price),
		snapshot.ActiveCount,
		decimalArg(snapshot.SellThrough),
		decimalArg(snapshot.SalesPerMonth),
		snapshot.Completeness,
		snapshot.ComputedAt,
		snapshot.ExpiresAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert snapshot: %w", execErr)
	}
	return nil
}

// GetSnapshot loads one snapshot. The found flag lets callers distinguish a
// computed-but-empty snapshot from one never computed.
func (s *Store) GetSnapshot(ctx context.Context, isbn, platform string, lookbackDays int) (bookmeta.StatisticsSnapshot, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return bookmeta.StatisticsSnapshot{}, false, err
	}

	rows, queryErr := pool.Query(ctx, getSnapshotSQL, isbn, platform, lookbackDays)
	if queryErr != nil {
		return bookmeta.StatisticsSnapshot{}, false, fmt.Errorf("get snapshot: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return bookmeta.StatisticsSnapshot{}, false, rows.Err()
		}
		return bookmeta.StatisticsSnapshot{}, false, nil
	}

	snapshot, scanErr := scanSnapshot(rows)
	if scanErr != nil {
		return bookmeta.StatisticsSnapshot{}, false, scanErr
	}
	return snapshot, true, nil
}

// ListExpiredSnapshots returns snapshots past their refresh deadline,
// oldest deadline first.
func (s *Store) ListExpiredSnapshots(ctx context.Context, now time.Time, limit int) ([]bookmeta.StatisticsSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listExpiredSnapshotsSQL, now, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list expired snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]bookmeta.StatisticsSnapshot, 0, limit)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

func scanSnapshot(rows pgx.Rows) (bookmeta.StatisticsSnapshot, error) {
	var (
		snapshot    bookmeta.StatisticsSnapshot
		minStr      sql.NullString
		medianStr   sql.NullString
		maxStr      sql.NullString
		avgStr      sql.NullString
		stdDevStr   sql.NullString
		p25Str      sql.NullString
		p75Str      sql.NullString
		sellThruStr sql.NullString
		perMonthStr sql.NullString
	)

	if err := rows.Scan(
		&snapshot.ISBN,
		&snapshot.Platform,
		&snapshot.LookbackDays,
		&snapshot.TotalCount,
		&snapshot.LotCount,
		&snapshot.SingleCount,
		&minStr,
		&medianStr,
		&maxStr,
		&avgStr,
		&stdDevStr,
		&p25Str,
		&p75Str,
		&snapshot.ActiveCount,
		&sellThruStr,
		&perMonthStr,
		&snapshot.Completeness,
		&snapshot.ComputedAt,
		&snapshot.ExpiresAt,
	); err != nil {
		return bookmeta.StatisticsSnapshot{}, err
	}

	var convErr error
	if snapshot.MinPrice, convErr = nullDecimal(minStr); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse min price: %w", convErr)
	}
	if snapshot.MedianPrice, convErr = nullDecimal(medianStr); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse median price: %w", convErr)
	}
	if snapshot.MaxPrice, convErr = nullDecimal(maxStr); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse max price: %w", convErr)
	}
	if snapshot.AvgPrice, convErr = nullDecimal(avgStr); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse avg price: %w", convErr)
	}
	if snapshot.StdDev, convErr = nullDecimal(stdDevStr); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse std dev: %w", convErr)
	}
	if snapshot.P25Price, convErr = nullDecimal(p25Str); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse p25 price: %w", convErr)
	}
	if snapshot.P75Price, convErr = nullDecimal(p75Str); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse p75 price: %w", convErr)
	}
	if snapshot.SellThrough, convErr = nullDecimal(sellThruStr); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse sell through: %w", convErr)
	}
	if snapshot.SalesPerMonth, convErr = nullDecimal(perMonthStr); convErr != nil {
		return bookmeta.StatisticsSnapshot{}, fmt.Errorf("parse sales per month: %w", convErr)
	}

	return snapshot, nil
}
