package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"book-comps/internal/bookmeta"
	"book-comps/internal/config"
)

type fakeViewer struct {
	records   map[string]*bookmeta.CanonicalBookRecord
	snapshots map[string]bookmeta.StatisticsSnapshot
}

var _ recordViewer = (*fakeViewer)(nil)

func (f *fakeViewer) GetRecord(ctx context.Context, isbn string) (*bookmeta.CanonicalBookRecord, error) {
	return f.records[isbn], nil
}

func (f *fakeViewer) ListRecords(ctx context.Context, limit int) ([]bookmeta.CanonicalBookRecord, error) {
	records := make([]bookmeta.CanonicalBookRecord, 0, len(f.records))
	for _, record := range f.records {
		records = append(records, *record)
	}
	return records, nil
}

func (f *fakeViewer) GetSnapshot(ctx context.Context, isbn, platform string, lookbackDays int) (bookmeta.StatisticsSnapshot, bool, error) {
	snapshot, ok := f.snapshots[fmt.Sprintf("%s/%s/%d", isbn, platform, lookbackDays)]
	return snapshot, ok, nil
}

func showTestApp() *App {
	cfg := &config.Config{Stats: config.StatsConfig{LookbackDays: 365}}
	return NewApp(cfg, zerolog.Nop())
}

func showTestRecord(isbn string) *bookmeta.CanonicalBookRecord {
	title := "The Moonstone"
	return &bookmeta.CanonicalBookRecord{
		ISBN:      isbn,
		Title:     &title,
		UpdatedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestShowDistinguishesEmptySnapshotFromMissing(t *testing.T) {
	const isbn = "9780140620222"
	viewer := &fakeViewer{
		records: map[string]*bookmeta.CanonicalBookRecord{isbn: showTestRecord(isbn)},
		snapshots: map[string]bookmeta.StatisticsSnapshot{
			// Computed over zero priced listings: all price fields nil,
			// counts zero, still a stored result.
			isbn + "/all/365": {
				ISBN:         isbn,
				Platform:     bookmeta.PlatformAll,
				LookbackDays: 365,
				ComputedAt:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	var out bytes.Buffer
	if err := showTestApp().showRecords(context.Background(), &out, viewer, ShowOptions{ISBN: isbn}); err != nil {
		t.Fatalf("show failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "no priced sales") {
		t.Fatalf("computed empty snapshot should be reported as such, got:\n%s", got)
	}
	if strings.Contains(got, "not computed") {
		t.Fatalf("computed snapshot must not be reported as missing, got:\n%s", got)
	}
}

func TestShowReportsUncomputedSnapshot(t *testing.T) {
	const isbn = "9780140620222"
	viewer := &fakeViewer{
		records: map[string]*bookmeta.CanonicalBookRecord{isbn: showTestRecord(isbn)},
	}

	var out bytes.Buffer
	if err := showTestApp().showRecords(context.Background(), &out, viewer, ShowOptions{ISBN: isbn}); err != nil {
		t.Fatalf("show failed: %v", err)
	}

	if !strings.Contains(out.String(), "not computed") {
		t.Fatalf("missing snapshot should be reported, got:\n%s", out.String())
	}
}

func TestShowUnknownRecord(t *testing.T) {
	var out bytes.Buffer
	err := showTestApp().showRecords(context.Background(), &out, &fakeViewer{}, ShowOptions{ISBN: "9780140620222"})
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out.String(), "no record for 9780140620222") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
