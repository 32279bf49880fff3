package staleness

import (
	"testing"
	"time"

	"book-comps/internal/bookmeta"
)

var staleNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func recordWithProvenance(isbn string, fetched map[bookmeta.FieldKey]time.Time) bookmeta.CanonicalBookRecord {
	record := bookmeta.NewRecord(isbn, staleNow.AddDate(0, -6, 0))
	for key, at := range fetched {
		record.Provenance[key] = bookmeta.Provenance{Source: "test", FetchedAt: at}
	}
	return record
}

// fullyFresh returns provenance for every tracked field fetched an hour ago,
// with per-field overrides applied on top.
func fullyFresh(overrides map[bookmeta.FieldKey]time.Time) map[bookmeta.FieldKey]time.Time {
	fresh := staleNow.Add(-time.Hour)
	fetched := map[bookmeta.FieldKey]time.Time{
		bookmeta.FieldTitle:        fresh,
		bookmeta.FieldAuthors:      fresh,
		bookmeta.FieldPublisher:    fresh,
		bookmeta.FieldPageCount:    fresh,
		bookmeta.FieldCoverType:    fresh,
		bookmeta.FieldPrinting:     fresh,
		bookmeta.FieldEdition:      fresh,
		bookmeta.FieldMarket:       fresh,
		bookmeta.FieldActiveMedian: fresh,
		bookmeta.FieldActiveCount:  fresh,
		bookmeta.FieldSoldComps:    fresh,
	}
	for key, at := range overrides {
		fetched[key] = at
	}
	return fetched
}

func TestStaleFieldsFlagsExpiredWindows(t *testing.T) {
	record := recordWithProvenance("9780553103540", map[bookmeta.FieldKey]time.Time{
		bookmeta.FieldTitle:     staleNow.AddDate(0, 0, -100),  // window 90d: stale
		bookmeta.FieldAuthors:   staleNow.AddDate(0, 0, -10),   // window 90d: fresh
		bookmeta.FieldMarket:    staleNow.Add(-48 * time.Hour), // window 24h: stale
		bookmeta.FieldSoldComps: staleNow.Add(-time.Hour),      // window 7d: fresh
	})
	// Remaining tracked fields have no provenance and count as never fetched.

	stale := StaleFields(&record, staleNow, DefaultWindows())

	got := make(map[bookmeta.FieldKey]StaleField, len(stale))
	for _, f := range stale {
		got[f.Field] = f
	}

	if _, ok := got[bookmeta.FieldTitle]; !ok {
		t.Fatal("title past its window should be stale")
	}
	if _, ok := got[bookmeta.FieldAuthors]; ok {
		t.Fatal("freshly fetched authors should not be stale")
	}
	if f, ok := got[bookmeta.FieldMarket]; !ok || f.Overdue != 24*time.Hour {
		t.Fatalf("market overdue wrong: %+v", f)
	}
	if _, ok := got[bookmeta.FieldSoldComps]; ok {
		t.Fatal("fresh sold comps should not be stale")
	}
	if f, ok := got[bookmeta.FieldPublisher]; !ok || !f.FetchedAt.IsZero() {
		t.Fatalf("never-fetched publisher should be stale with zero timestamp: %+v", f)
	}
}

func TestStaleFieldsNilRecord(t *testing.T) {
	if stale := StaleFields(nil, staleNow, DefaultWindows()); stale != nil {
		t.Fatalf("nil record should yield nothing, got %v", stale)
	}
}

func TestRefreshCandidatesOrdering(t *testing.T) {
	barely := recordWithProvenance("9780000000001", fullyFresh(map[bookmeta.FieldKey]time.Time{
		bookmeta.FieldTitle: staleNow.AddDate(0, 0, -91),
	}))
	badly := recordWithProvenance("9780000000002", fullyFresh(map[bookmeta.FieldKey]time.Time{
		bookmeta.FieldTitle: staleNow.AddDate(0, 0, -300),
	}))
	never := bookmeta.NewRecord("9780000000003", staleNow)

	candidates := RefreshCandidates(
		[]bookmeta.CanonicalBookRecord{barely, badly, never},
		staleNow,
		DefaultWindows(),
	)

	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if candidates[0].ISBN != "9780000000003" {
		t.Fatalf("never-fetched fields should sort first, got %s/%s", candidates[0].ISBN, candidates[0].Field)
	}

	var barelyIdx, badlyIdx int
	for i, c := range candidates {
		if c.Field != bookmeta.FieldTitle {
			continue
		}
		switch c.ISBN {
		case "9780000000001":
			barelyIdx = i
		case "9780000000002":
			badlyIdx = i
		}
	}
	if badlyIdx > barelyIdx {
		t.Fatalf("more overdue title should rank first: badly=%d barely=%d", badlyIdx, barelyIdx)
	}
}

func TestWindowsFor(t *testing.T) {
	windows := DefaultWindows()

	if windows.For(bookmeta.FieldTitle) != windows.Bibliographic {
		t.Fatal("title should use the bibliographic window")
	}
	if windows.For(bookmeta.FieldActiveMedian) != windows.Market {
		t.Fatal("active median should use the market window")
	}
	if windows.For(bookmeta.FieldSoldComps) != windows.SoldComps {
		t.Fatal("sold comps should use its own window")
	}
}
