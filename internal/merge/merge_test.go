package merge

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

var (
	mergeNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	older    = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	newer    = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }

func TestApplyCreatesRecordOnFirstIngestion(t *testing.T) {
	in := Incoming{
		ISBN:      "9780553103540",
		Source:    "google_books",
		FetchedAt: older,
		Title:     strPtr("A Game of Thrones"),
		Authors:   []string{"George R. R. Martin"},
	}

	result, err := Apply(nil, in, mergeNow)
	if err != nil {
		t.Fatalf("Apply should succeed: %v", err)
	}
	if !result.Created {
		t.Fatal("first ingestion should create the record")
	}
	if result.Record.Title == nil || *result.Record.Title != "A Game of Thrones" {
		t.Fatalf("title not applied: %#v", result.Record.Title)
	}
	prov, ok := result.Record.Provenance[bookmeta.FieldTitle]
	if !ok || prov.Source != "google_books" || !prov.FetchedAt.Equal(older) {
		t.Fatalf("provenance wrong: %#v", prov)
	}
}

func TestApplyRejectsMissingISBN(t *testing.T) {
	_, err := Apply(nil, Incoming{Source: "google_books", FetchedAt: older}, mergeNow)
	if !errors.Is(err, bookmeta.ErrMissingIdentifier) {
		t.Fatalf("expected ErrMissingIdentifier, got %v", err)
	}
}

func TestApplyNewerValueWins(t *testing.T) {
	first := Incoming{ISBN: "9780553103540", Source: "a", FetchedAt: older, Title: strPtr("Old Title")}
	second := Incoming{ISBN: "9780553103540", Source: "b", FetchedAt: newer, Title: strPtr("New Title")}

	result, err := Apply(nil, first, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	result, err = Apply(&result.Record, second, mergeNow)
	if err != nil {
		t.Fatal(err)
	}

	if *result.Record.Title != "New Title" {
		t.Fatalf("newer fetch should win, got %q", *result.Record.Title)
	}
	if result.Record.Provenance[bookmeta.FieldTitle].Source != "b" {
		t.Fatal("provenance should follow the winning source")
	}
}

func TestApplyStaleValueSkipped(t *testing.T) {
	first := Incoming{ISBN: "9780553103540", Source: "a", FetchedAt: newer, Title: strPtr("Current Title")}
	second := Incoming{ISBN: "9780553103540", Source: "b", FetchedAt: older, Title: strPtr("Stale Title")}

	result, err := Apply(nil, first, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	result, err = Apply(&result.Record, second, mergeNow)
	if err != nil {
		t.Fatal(err)
	}

	if *result.Record.Title != "Current Title" {
		t.Fatalf("stale value must not overwrite, got %q", *result.Record.Title)
	}
	if len(result.Applied) != 0 {
		t.Fatalf("stale merge should apply nothing: %v", result.Applied)
	}
	if len(result.Stale) != 1 || result.Stale[0] != bookmeta.FieldTitle {
		t.Fatalf("stale fields wrong: %v", result.Stale)
	}
}

func TestApplyEqualTimestampDoesNotOverwrite(t *testing.T) {
	first := Incoming{ISBN: "9780553103540", Source: "a", FetchedAt: older, Title: strPtr("First")}
	second := Incoming{ISBN: "9780553103540", Source: "b", FetchedAt: older, Title: strPtr("Second")}

	result, err := Apply(nil, first, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	result, err = Apply(&result.Record, second, mergeNow)
	if err != nil {
		t.Fatal(err)
	}

	if *result.Record.Title != "First" {
		t.Fatalf("ties must keep the existing value, got %q", *result.Record.Title)
	}
}

func TestApplyNullNeverOverwrites(t *testing.T) {
	first := Incoming{
		ISBN:      "9780553103540",
		Source:    "a",
		FetchedAt: older,
		Title:     strPtr("Kept Title"),
		Publisher: strPtr("Bantam"),
	}
	// Newer fetch with a missing publisher must not erase the older value.
	second := Incoming{ISBN: "9780553103540", Source: "b", FetchedAt: newer, Title: strPtr("Kept Title")}

	result, err := Apply(nil, first, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	result, err = Apply(&result.Record, second, mergeNow)
	if err != nil {
		t.Fatal(err)
	}

	if result.Record.Publisher == nil || *result.Record.Publisher != "Bantam" {
		t.Fatalf("null must never overwrite: %#v", result.Record.Publisher)
	}
}

func TestApplyOrderIndependent(t *testing.T) {
	count := 14
	median := decimal.RequireFromString("21.50")
	a := Incoming{
		ISBN:      "9780553103540",
		Source:    "google_books",
		FetchedAt: older,
		Title:     strPtr("A Game of Thrones"),
		Publisher: strPtr("Bantam"),
	}
	b := Incoming{
		ISBN:         "9780553103540",
		Source:       "ebay_active",
		FetchedAt:    newer,
		Title:        strPtr("A Game of Thrones (1st ed)"),
		ActiveMedian: &median,
		ActiveCount:  &count,
	}

	ab, err := Apply(nil, a, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	ab, err = Apply(&ab.Record, b, mergeNow)
	if err != nil {
		t.Fatal(err)
	}

	ba, err := Apply(nil, b, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	ba, err = Apply(&ba.Record, a, mergeNow)
	if err != nil {
		t.Fatal(err)
	}

	if *ab.Record.Title != *ba.Record.Title {
		t.Fatalf("title diverged: %q vs %q", *ab.Record.Title, *ba.Record.Title)
	}
	if *ab.Record.Publisher != *ba.Record.Publisher {
		t.Fatalf("publisher diverged: %q vs %q", *ab.Record.Publisher, *ba.Record.Publisher)
	}
	if !ab.Record.ActiveMedian.Equal(*ba.Record.ActiveMedian) {
		t.Fatalf("active median diverged: %s vs %s", ab.Record.ActiveMedian, ba.Record.ActiveMedian)
	}
	if ab.Record.Provenance[bookmeta.FieldTitle] != ba.Record.Provenance[bookmeta.FieldTitle] {
		t.Fatal("title provenance diverged")
	}
}

func TestApplyDoesNotMutateExistingRecord(t *testing.T) {
	first := Incoming{ISBN: "9780553103540", Source: "a", FetchedAt: older, Title: strPtr("Original")}
	result, err := Apply(nil, first, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	existing := result.Record

	second := Incoming{ISBN: "9780553103540", Source: "b", FetchedAt: newer, Title: strPtr("Changed")}
	if _, err := Apply(&existing, second, mergeNow); err != nil {
		t.Fatal(err)
	}

	if *existing.Title != "Original" {
		t.Fatalf("input record was mutated: %q", *existing.Title)
	}
	if existing.Provenance[bookmeta.FieldTitle].Source != "a" {
		t.Fatal("input provenance was mutated")
	}
}

func TestApplyQualityScorePassesThrough(t *testing.T) {
	first := Incoming{ISBN: "9780553103540", Source: "a", FetchedAt: older, Title: strPtr("Title")}
	result, err := Apply(nil, first, mergeNow)
	if err != nil {
		t.Fatal(err)
	}
	record := result.Record
	record.QualityScore = 0.42
	record.TrainingEligible = true

	second := Incoming{ISBN: "9780553103540", Source: "b", FetchedAt: newer, Publisher: strPtr("Bantam")}
	result, err = Apply(&record, second, mergeNow)
	if err != nil {
		t.Fatal(err)
	}

	if result.Record.QualityScore != 0.42 || !result.Record.TrainingEligible {
		t.Fatal("derived fields must pass through the merge untouched")
	}
}
