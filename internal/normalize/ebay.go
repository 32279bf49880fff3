package normalize

import (
	"fmt"
	"regexp"
	"time"

	"book-comps/internal/bookmeta"
)

// PlatformEbay tags eBay listings.
const PlatformEbay = "ebay"

var (
	ebayItemPathRe  = regexp.MustCompile(`/itm/(\d+)`)
	ebayItemQueryRe = regexp.MustCompile(`[?&]item=(\d+)`)
)

// Ebay normalises eBay sold/active listing payloads.
type Ebay struct {
	opts Options
}

// NewEbay constructs the eBay adapter.
func NewEbay(opts Options) *Ebay {
	return &Ebay{opts: opts}
}

// Platform returns the adapter's platform tag.
func (e *Ebay) Platform() string { return PlatformEbay }

// Normalize canonicalises one eBay payload.
func (e *Ebay) Normalize(raw RawListing, now time.Time) (bookmeta.Listing, error) {
	id := ebayListingID(raw.URL)
	if id == "" {
		return bookmeta.Listing{}, fmt.Errorf("%w: no item id in url %q", ErrMalformedListing, raw.URL)
	}
	return build(PlatformEbay, id, raw, e.opts, now)
}

// ebayListingID resolves the numeric item id from /itm/<id> URLs, falling
// back to the legacy ?item= query form.
func ebayListingID(url string) string {
	if match := ebayItemPathRe.FindStringSubmatch(url); match != nil {
		return match[1]
	}
	if match := ebayItemQueryRe.FindStringSubmatch(url); match != nil {
		return match[1]
	}
	return ""
}

var _ Adapter = (*Ebay)(nil)
