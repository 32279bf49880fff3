package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

const (
	upsertRecordSQL = `INSERT INTO books (
        isbn,
        title,
        authors,
        publisher,
        page_count,
        cover_type,
        signed,
        printing,
        edition,
        market_json,
        active_median,
        active_count,
        sold_comps_count,
        sold_comps_min,
        sold_comps_median,
        sold_comps_max,
        sold_comps_is_estimate,
        sold_comps_source,
        quality_score,
        training_eligible,
        provenance,
        created_at,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23
    )
    ON CONFLICT (isbn) DO UPDATE
    SET
        title                  = EXCLUDED.title,
        authors                = EXCLUDED.authors,
        publisher              = EXCLUDED.publisher,
        page_count             = EXCLUDED.page_count,
        cover_type             = EXCLUDED.cover_type,
        signed                 = EXCLUDED.signed,
        printing               = EXCLUDED.printing,
        edition                = EXCLUDED.edition,
        market_json            = EXCLUDED.market_json,
        active_median          = EXCLUDED.active_median,
        active_count           = EXCLUDED.active_count,
        sold_comps_count       = EXCLUDED.sold_comps_count,
        sold_comps_min         = EXCLUDED.sold_comps_min,
        sold_comps_median      = EXCLUDED.sold_comps_median,
        sold_comps_max         = EXCLUDED.sold_comps_max,
        sold_comps_is_estimate = EXCLUDED.sold_comps_is_estimate,
        sold_comps_source      = EXCLUDED.sold_comps_source,
        quality_score          = EXCLUDED.quality_score,
        training_eligible      = EXCLUDED.training_eligible,
        provenance             = EXCLUDED.provenance,
        updated_at             = EXCLUDED.updated_at;`

	recordColumns = `isbn,
        title,
        authors,
        publisher,
        page_count,
        cover_type,
        signed,
        printing,
        edition,
        market_json,
        active_median,
        active_count,
        sold_comps_count,
        sold_comps_min,
        sold_comps_median,
        sold_comps_max,
        sold_comps_is_estimate,
        sold_comps_source,
        quality_score,
        training_eligible,
        provenance,
        created_at,
        updated_at`

	getRecordSQL = `SELECT ` + recordColumns + `
    FROM books
    WHERE isbn = $1;`

	listRecordsSQL = `SELECT ` + recordColumns + `
    FROM books
    ORDER BY updated_at DESC
    LIMIT $1;`
)

// GetRecord loads the canonical record for an ISBN, or nil when absent.
func (s *Store) GetRecord(ctx context.Context, isbn string) (*bookmeta.CanonicalBookRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, getRecordSQL, isbn)
	if queryErr != nil {
		return nil, fmt.Errorf("get record: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return nil, nil
	}

	record, scanErr := scanRecord(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	return &record, nil
}

// UpsertRecord persists the full canonical record in one atomic statement.
// Merges are committed whole per item; a failure leaves the previous state.
func (s *Store) UpsertRecord(ctx context.Context, record *bookmeta.CanonicalBookRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if record == nil {
		return errors.New("storage: nil record")
	}

	authorsJSON, err := json.Marshal(record.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}
	provenanceJSON, err := json.Marshal(record.Provenance)
	if err != nil {
		return fmt.Errorf("marshal provenance: %w", err)
	}

	var marketJSON interface{}
	if len(record.Market) > 0 {
		marketJSON = []byte(record.Market)
	}

	comps := record.SoldComps
	var (
		compsCount      int
		compsIsEstimate bool
		compsSource     sql.NullString
	)
	var compsMin, compsMedian, compsMax interface{}
	if comps != nil {
		compsCount = comps.Count
		compsIsEstimate = comps.IsEstimate
		if comps.Source != "" {
			compsSource = sql.NullString{String: comps.Source, Valid: true}
		}
		compsMin = decimalArg(comps.Min)
		compsMedian = decimalArg(comps.Median)
		compsMax = decimalArg(comps.Max)
	}

	_, execErr := pool.Exec(ctx, upsertRecordSQL,
		record.ISBN,
		record.Title,
		authorsJSON,
		record.Publisher,
		record.PageCount,
		record.CoverType,
		record.Signed,
		record.Printing,
		record.Edition,
		marketJSON,
		decimalArg(record.ActiveMedian),
		record.ActiveCount,
		compsCount,
		compsMin,
		compsMedian,
		compsMax,
		compsIsEstimate,
		compsSource,
		record.QualityScore,
		record.TrainingEligible,
		provenanceJSON,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert record: %w", execErr)
	}
	return nil
}

// ListRecords returns the most recently updated canonical records. A
// non-positive limit returns every record.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]bookmeta.CanonicalBookRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	rows, queryErr := pool.Query(ctx, listRecordsSQL, limitArg)
	if queryErr != nil {
		return nil, fmt.Errorf("list records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]bookmeta.CanonicalBookRecord, 0)
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanRecord(rows pgx.Rows) (bookmeta.CanonicalBookRecord, error) {
	var (
		record          bookmeta.CanonicalBookRecord
		authorsJSON     []byte
		marketJSON      []byte
		provenanceJSON  []byte
		activeMedianStr sql.NullString
		compsCount      int
		compsMinStr     sql.NullString
		compsMedianStr  sql.NullString
		compsMaxStr     sql.NullString
		compsIsEstimate bool
		compsSource     sql.NullString
	)

	if err := rows.Scan(
		&record.ISBN,
		&record.Title,
		&authorsJSON,
		&record.Publisher,
		&record.PageCount,
		&record.CoverType,
		&record.Signed,
		&record.Printing,
		&record.Edition,
		&marketJSON,
		&activeMedianStr,
		&record.ActiveCount,
		&compsCount,
		&compsMinStr,
		&compsMedianStr,
		&compsMaxStr,
		&compsIsEstimate,
		&compsSource,
		&record.QualityScore,
		&record.TrainingEligible,
		&provenanceJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return bookmeta.CanonicalBookRecord{}, err
	}

	if len(authorsJSON) > 0 {
		if err := json.Unmarshal(authorsJSON, &record.Authors); err != nil {
			return bookmeta.CanonicalBookRecord{}, fmt.Errorf("parse authors: %w", err)
		}
	}
	if len(marketJSON) > 0 {
		record.Market = json.RawMessage(marketJSON)
	}
	record.Provenance = make(map[bookmeta.FieldKey]bookmeta.Provenance)
	if len(provenanceJSON) > 0 {
		if err := json.Unmarshal(provenanceJSON, &record.Provenance); err != nil {
			return bookmeta.CanonicalBookRecord{}, fmt.Errorf("parse provenance: %w", err)
		}
	}

	var convErr error
	record.ActiveMedian, convErr = nullDecimal(activeMedianStr)
	if convErr != nil {
		return bookmeta.CanonicalBookRecord{}, fmt.Errorf("parse active median: %w", convErr)
	}

	if compsCount > 0 || compsIsEstimate || compsSource.Valid || compsMedianStr.Valid {
		comps := &bookmeta.SoldComps{
			Count:      compsCount,
			IsEstimate: compsIsEstimate,
			Source:     compsSource.String,
		}
		if comps.Min, convErr = nullDecimal(compsMinStr); convErr != nil {
			return bookmeta.CanonicalBookRecord{}, fmt.Errorf("parse comps min: %w", convErr)
		}
		if comps.Median, convErr = nullDecimal(compsMedianStr); convErr != nil {
			return bookmeta.CanonicalBookRecord{}, fmt.Errorf("parse comps median: %w", convErr)
		}
		if comps.Max, convErr = nullDecimal(compsMaxStr); convErr != nil {
			return bookmeta.CanonicalBookRecord{}, fmt.Errorf("parse comps max: %w", convErr)
		}
		record.SoldComps = comps
	}

	return record, nil
}

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	value, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
