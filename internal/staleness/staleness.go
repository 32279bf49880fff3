// Package staleness reports which canonical-record fields have outlived
// their freshness window. It is a pull-based query over record state:
// no timers, no fetching. External schedulers consume the candidate list
// and decide what to re-fetch.
package staleness

import (
	"sort"
	"time"

	"book-comps/internal/bookmeta"
)

// Windows configure the freshness window per field category.
type Windows struct {
	Bibliographic time.Duration
	Market        time.Duration
	SoldComps     time.Duration
}

// DefaultWindows mirror the configured defaults: market data moves daily,
// sold comps weekly, bibliographic metadata rarely.
func DefaultWindows() Windows {
	return Windows{
		Bibliographic: 90 * 24 * time.Hour,
		Market:        24 * time.Hour,
		SoldComps:     7 * 24 * time.Hour,
	}
}

// For returns the freshness window governing a field.
func (w Windows) For(key bookmeta.FieldKey) time.Duration {
	switch key {
	case bookmeta.FieldMarket, bookmeta.FieldActiveMedian, bookmeta.FieldActiveCount:
		return w.Market
	case bookmeta.FieldSoldComps:
		return w.SoldComps
	default:
		return w.Bibliographic
	}
}

// trackedFields are the fields whose age drives re-fetch decisions.
var trackedFields = []bookmeta.FieldKey{
	bookmeta.FieldTitle,
	bookmeta.FieldAuthors,
	bookmeta.FieldPublisher,
	bookmeta.FieldPageCount,
	bookmeta.FieldCoverType,
	bookmeta.FieldPrinting,
	bookmeta.FieldEdition,
	bookmeta.FieldMarket,
	bookmeta.FieldActiveMedian,
	bookmeta.FieldActiveCount,
	bookmeta.FieldSoldComps,
}

// StaleField is one field past its freshness window.
type StaleField struct {
	ISBN  string
	Field bookmeta.FieldKey
	// FetchedAt is zero when the field was never fetched.
	FetchedAt time.Time
	Window    time.Duration
	// Overdue is how far past the window the field has aged. Never-fetched
	// fields sort as infinitely overdue.
	Overdue time.Duration
}

// neverFetched ranks ahead of any finite overdue duration.
const neverFetched = time.Duration(1<<63 - 1)

// StaleFields returns the record's fields whose fetch timestamp is older
// than the configured window, including fields never fetched at all.
func StaleFields(record *bookmeta.CanonicalBookRecord, now time.Time, windows Windows) []StaleField {
	if record == nil {
		return nil
	}

	var stale []StaleField
	for _, key := range trackedFields {
		window := windows.For(key)
		if window <= 0 {
			continue
		}
		prov, ok := record.Provenance[key]
		if !ok {
			stale = append(stale, StaleField{
				ISBN:    record.ISBN,
				Field:   key,
				Window:  window,
				Overdue: neverFetched,
			})
			continue
		}
		age := now.Sub(prov.FetchedAt)
		if age > window {
			stale = append(stale, StaleField{
				ISBN:      record.ISBN,
				Field:     key,
				FetchedAt: prov.FetchedAt,
				Window:    window,
				Overdue:   age - window,
			})
		}
	}
	return stale
}

// RefreshCandidates ranks stale fields across many records, most overdue
// relative to its window first, for external refresh schedulers.
func RefreshCandidates(records []bookmeta.CanonicalBookRecord, now time.Time, windows Windows) []StaleField {
	var candidates []StaleField
	for i := range records {
		candidates = append(candidates, StaleFields(&records[i], now, windows)...)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Overdue > candidates[j].Overdue
	})
	return candidates
}
