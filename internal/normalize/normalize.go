package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

// ErrMalformedListing rejects a raw listing whose platform-native id cannot
// be resolved. The listing is skipped; the surrounding batch continues.
var ErrMalformedListing = errors.New("normalize: malformed listing")

// ErrUnknownPlatform rejects payloads tagged with a platform no adapter handles.
var ErrUnknownPlatform = errors.New("normalize: unknown platform")

// RawListing is the scrape payload handed to an adapter, one per observed
// listing. Text fields arrive as scraped; the adapter owns all parsing.
type RawListing struct {
	ISBN          string `json:"isbn"`
	Platform      string `json:"platform"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	PriceText     string `json:"price_text"`
	Currency      string `json:"currency"`
	ConditionText string `json:"condition_text"`
	SoldDateText  string `json:"sold_date_text"`
	WatcherCount  *int   `json:"watcher_count,omitempty"`
	Snippet       string `json:"snippet,omitempty"`
}

// Adapter canonicalises one platform's raw payloads into Listings.
// Adding a marketplace means adding one Adapter implementation; nothing
// downstream of the normalizer changes.
type Adapter interface {
	Platform() string
	Normalize(raw RawListing, now time.Time) (bookmeta.Listing, error)
}

// Options carry the shared normalization policy.
type Options struct {
	// MinPrice and MaxPrice bound plausible single-listing prices. Values
	// outside the range are stored as null rather than rejected, guarding
	// against identifier strings mis-parsed as prices.
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	// DefaultCurrency is applied when the payload has no currency tag.
	DefaultCurrency string
}

// DefaultOptions mirror the configured defaults.
func DefaultOptions() Options {
	return Options{
		MinPrice:        decimal.NewFromFloat(0.01),
		MaxPrice:        decimal.NewFromInt(10000),
		DefaultCurrency: "USD",
	}
}

// Registry owns the fixed set of platform adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds the default adapter set.
func NewRegistry(opts Options) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Register(NewEbay(opts))
	r.Register(NewMercari(opts))
	r.Register(NewAbeBooks(opts))
	return r
}

// Register adds or replaces an adapter by platform tag.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

// ForPlatform resolves the adapter for a platform tag.
func (r *Registry) ForPlatform(tag string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(tag))]
	return a, ok
}

// Platforms lists the registered platform tags.
func (r *Registry) Platforms() []string {
	tags := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		tags = append(tags, tag)
	}
	return tags
}

// Normalize dispatches a raw listing to its platform adapter.
func (r *Registry) Normalize(raw RawListing, now time.Time) (bookmeta.Listing, error) {
	adapter, ok := r.ForPlatform(raw.Platform)
	if !ok {
		return bookmeta.Listing{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, raw.Platform)
	}
	return adapter.Normalize(raw, now)
}

// build assembles a Listing once the platform adapter has resolved the
// listing id. All field-level policy lives here so every adapter applies
// identical sanity bounds.
func build(platform, listingID string, raw RawListing, opts Options, now time.Time) (bookmeta.Listing, error) {
	if err := bookmeta.RequireISBN(raw.ISBN); err != nil {
		return bookmeta.Listing{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = opts.DefaultCurrency
	}

	listing := bookmeta.Listing{
		ISBN:         raw.ISBN,
		Platform:     platform,
		URL:          raw.URL,
		ListingID:    listingID,
		Price:        parsePrice(raw.PriceText, opts),
		Currency:     currency,
		Condition:    normalizeCondition(raw.ConditionText),
		WatcherCount: raw.WatcherCount,
		Snippet:      raw.Snippet,
		FirstSeenAt:  now,
		UpdatedAt:    now,
	}

	if IsLot(raw.Title) {
		listing.IsLot = true
		listing.LotSize = ExtractLotSize(raw.Title)
	}

	if date := parseSoldDate(raw.SoldDateText, now); date != nil {
		listing.SoldDate = date
	}

	return listing, nil
}
