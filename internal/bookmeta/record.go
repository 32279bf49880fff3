package bookmeta

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// FieldKey identifies one mergeable field of a canonical record.
type FieldKey string

const (
	FieldTitle        FieldKey = "title"
	FieldAuthors      FieldKey = "authors"
	FieldPublisher    FieldKey = "publisher"
	FieldPageCount    FieldKey = "page_count"
	FieldCoverType    FieldKey = "cover_type"
	FieldSigned       FieldKey = "signed"
	FieldPrinting     FieldKey = "printing"
	FieldEdition      FieldKey = "edition"
	FieldMarket       FieldKey = "market"
	FieldActiveMedian FieldKey = "active_median"
	FieldActiveCount  FieldKey = "active_count"
	FieldSoldComps    FieldKey = "sold_comps"
)

// BibliographicFields lists the metadata fields counted towards completeness.
var BibliographicFields = []FieldKey{
	FieldTitle,
	FieldAuthors,
	FieldPublisher,
	FieldPageCount,
	FieldCoverType,
	FieldPrinting,
	FieldEdition,
}

// Provenance records which source last wrote a field and when it was fetched.
type Provenance struct {
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SoldComps summarises confirmed (or estimated) past sale prices for an ISBN.
type SoldComps struct {
	Count      int
	Min        *decimal.Decimal
	Median     *decimal.Decimal
	Max        *decimal.Decimal
	IsEstimate bool
	Source     string
}

// HasMedian reports whether the summary carries a positive median.
func (c *SoldComps) HasMedian() bool {
	return c != nil && c.Median != nil && c.Median.IsPositive()
}

// CanonicalBookRecord is the single merged record kept per ISBN-13.
//
// QualityScore and TrainingEligible are always derived by the scorer;
// source adapters and the merge engine never write them directly.
type CanonicalBookRecord struct {
	ISBN      string
	Title     *string
	Authors   []string
	Publisher *string
	PageCount *int
	CoverType *string
	Signed    *bool
	Printing  *string
	Edition   *string

	// Market holds the most recent per-source market payload verbatim.
	Market       json.RawMessage
	ActiveMedian *decimal.Decimal
	ActiveCount  *int

	SoldComps *SoldComps

	QualityScore     float64
	TrainingEligible bool

	Provenance map[FieldKey]Provenance

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates an empty canonical record for an ISBN.
func NewRecord(isbn string, now time.Time) CanonicalBookRecord {
	return CanonicalBookRecord{
		ISBN:       isbn,
		Provenance: make(map[FieldKey]Provenance),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// FetchedAt returns the provenance timestamp for a field, if recorded.
func (r *CanonicalBookRecord) FetchedAt(key FieldKey) (time.Time, bool) {
	p, ok := r.Provenance[key]
	return p.FetchedAt, ok
}

// Listing is one observed marketplace listing, sold or active.
//
// Uniqueness is on (Platform, ListingID); re-sightings update the existing
// row rather than creating a new one.
type Listing struct {
	ISBN         string
	Platform     string
	URL          string
	ListingID    string
	Price        *decimal.Decimal
	Currency     string
	SoldDate     *time.Time
	Condition    *string
	WatcherCount *int
	IsLot        bool
	LotSize      *int
	Snippet      string
	FirstSeenAt  time.Time
	UpdatedAt    time.Time
}

// Sold reports whether the listing represents a completed sale.
func (l *Listing) Sold() bool {
	return l.SoldDate != nil
}

// DaysSinceSale returns whole days between the sale date and now, or -1 for
// active listings.
func (l *Listing) DaysSinceSale(now time.Time) int {
	if l.SoldDate == nil {
		return -1
	}
	return int(now.Sub(*l.SoldDate).Hours() / 24)
}

// StatisticsSnapshot is one cached price distribution for an
// (ISBN, platform-or-all, lookback window) triple.
//
// Snapshots are recomputed wholesale; a snapshot with zero priced listings
// keeps all price fields nil and is still a valid result, distinct from a
// snapshot that was never computed.
type StatisticsSnapshot struct {
	ISBN         string
	Platform     string // PlatformAll for the cross-platform aggregate
	LookbackDays int

	TotalCount  int
	LotCount    int
	SingleCount int

	MinPrice    *decimal.Decimal
	MedianPrice *decimal.Decimal
	MaxPrice    *decimal.Decimal
	AvgPrice    *decimal.Decimal
	StdDev      *decimal.Decimal
	P25Price    *decimal.Decimal
	P75Price    *decimal.Decimal

	ActiveCount   *int
	SellThrough   *decimal.Decimal
	SalesPerMonth *decimal.Decimal
	Completeness  float64

	ComputedAt time.Time
	ExpiresAt  time.Time
}

// PlatformAll tags a snapshot aggregated across every platform.
const PlatformAll = "all"

// Expired reports whether the snapshot has passed its refresh deadline.
func (s *StatisticsSnapshot) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
