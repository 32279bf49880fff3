// Package merge folds multi-source partial payloads into the canonical
// per-ISBN record. The precedence rule is applied independently per field:
// non-null beats null unconditionally; between two non-null values the
// strictly newer fetch timestamp wins; null never overwrites. Applying the
// same set of timestamped inputs in any order converges to the same record.
package merge

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

// Incoming is one source's partial view of a book. Nil fields are absent
// and can never erase existing data.
type Incoming struct {
	ISBN      string
	Source    string
	FetchedAt time.Time

	Title     *string
	Authors   []string
	Publisher *string
	PageCount *int
	CoverType *string
	Signed    *bool
	Printing  *string
	Edition   *string

	Market       json.RawMessage
	ActiveMedian *decimal.Decimal
	ActiveCount  *int

	SoldComps *bookmeta.SoldComps
}

// Result reports which fields a merge wrote and which it skipped as stale.
// Skipped fields are a no-op, not an error.
type Result struct {
	Record  bookmeta.CanonicalBookRecord
	Created bool
	Applied []bookmeta.FieldKey
	Stale   []bookmeta.FieldKey
}

// Apply merges an incoming partial payload into the existing record (nil for
// first ingestion). It is a pure function: the input record is not mutated,
// and the quality score and eligibility flag pass through untouched for the
// scorer to recompute.
func Apply(existing *bookmeta.CanonicalBookRecord, in Incoming, now time.Time) (Result, error) {
	if err := bookmeta.RequireISBN(in.ISBN); err != nil {
		return Result{}, err
	}

	var result Result
	if existing == nil {
		result.Record = bookmeta.NewRecord(in.ISBN, now)
		result.Created = true
	} else {
		result.Record = cloneRecord(existing)
	}
	record := &result.Record

	m := merger{record: record, in: in, result: &result}

	m.field(bookmeta.FieldTitle, in.Title != nil, record.Title != nil, func() {
		record.Title = in.Title
	})
	m.field(bookmeta.FieldAuthors, len(in.Authors) > 0, len(record.Authors) > 0, func() {
		record.Authors = append([]string(nil), in.Authors...)
	})
	m.field(bookmeta.FieldPublisher, in.Publisher != nil, record.Publisher != nil, func() {
		record.Publisher = in.Publisher
	})
	m.field(bookmeta.FieldPageCount, in.PageCount != nil, record.PageCount != nil, func() {
		record.PageCount = in.PageCount
	})
	m.field(bookmeta.FieldCoverType, in.CoverType != nil, record.CoverType != nil, func() {
		record.CoverType = in.CoverType
	})
	m.field(bookmeta.FieldSigned, in.Signed != nil, record.Signed != nil, func() {
		record.Signed = in.Signed
	})
	m.field(bookmeta.FieldPrinting, in.Printing != nil, record.Printing != nil, func() {
		record.Printing = in.Printing
	})
	m.field(bookmeta.FieldEdition, in.Edition != nil, record.Edition != nil, func() {
		record.Edition = in.Edition
	})
	m.field(bookmeta.FieldMarket, len(in.Market) > 0, len(record.Market) > 0, func() {
		record.Market = append(json.RawMessage(nil), in.Market...)
	})
	m.field(bookmeta.FieldActiveMedian, in.ActiveMedian != nil, record.ActiveMedian != nil, func() {
		record.ActiveMedian = in.ActiveMedian
	})
	m.field(bookmeta.FieldActiveCount, in.ActiveCount != nil, record.ActiveCount != nil, func() {
		record.ActiveCount = in.ActiveCount
	})
	m.field(bookmeta.FieldSoldComps, in.SoldComps != nil, record.SoldComps != nil, func() {
		comps := *in.SoldComps
		record.SoldComps = &comps
	})

	if len(result.Applied) > 0 {
		record.UpdatedAt = now
	}

	return result, nil
}

type merger struct {
	record *bookmeta.CanonicalBookRecord
	in     Incoming
	result *Result
}

// field applies the per-field precedence rule and tracks provenance.
func (m *merger) field(key bookmeta.FieldKey, incomingSet, existingSet bool, write func()) {
	if !incomingSet {
		return
	}
	if existingSet {
		if prev, ok := m.record.FetchedAt(key); ok && !m.in.FetchedAt.After(prev) {
			m.result.Stale = append(m.result.Stale, key)
			return
		}
	}
	write()
	m.record.Provenance[key] = bookmeta.Provenance{
		Source:    m.in.Source,
		FetchedAt: m.in.FetchedAt,
	}
	m.result.Applied = append(m.result.Applied, key)
}

func cloneRecord(src *bookmeta.CanonicalBookRecord) bookmeta.CanonicalBookRecord {
	dst := *src
	dst.Authors = append([]string(nil), src.Authors...)
	dst.Market = append(json.RawMessage(nil), src.Market...)
	dst.Provenance = make(map[bookmeta.FieldKey]bookmeta.Provenance, len(src.Provenance))
	for k, v := range src.Provenance {
		dst.Provenance[k] = v
	}
	if src.SoldComps != nil {
		comps := *src.SoldComps
		dst.SoldComps = &comps
	}
	return dst
}
