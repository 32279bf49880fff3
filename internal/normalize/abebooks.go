package normalize

import (
	"fmt"
	"regexp"
	"time"

	"book-comps/internal/bookmeta"
)

// PlatformAbeBooks tags AbeBooks listings.
const PlatformAbeBooks = "abebooks"

var abeBookIDRe = regexp.MustCompile(`(?i)[?&]bi=(\d+)`)

// AbeBooks normalises AbeBooks listing payloads. Listing URLs carry the
// book id in the bi query parameter.
type AbeBooks struct {
	opts Options
}

// NewAbeBooks constructs the AbeBooks adapter.
func NewAbeBooks(opts Options) *AbeBooks {
	return &AbeBooks{opts: opts}
}

// Platform returns the adapter's platform tag.
func (a *AbeBooks) Platform() string { return PlatformAbeBooks }

// Normalize canonicalises one AbeBooks payload.
func (a *AbeBooks) Normalize(raw RawListing, now time.Time) (bookmeta.Listing, error) {
	match := abeBookIDRe.FindStringSubmatch(raw.URL)
	if match == nil {
		return bookmeta.Listing{}, fmt.Errorf("%w: no book id in url %q", ErrMalformedListing, raw.URL)
	}
	return build(PlatformAbeBooks, match[1], raw, a.opts, now)
}

var _ Adapter = (*AbeBooks)(nil)
