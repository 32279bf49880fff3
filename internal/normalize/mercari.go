package normalize

import (
	"fmt"
	"regexp"
	"time"

	"book-comps/internal/bookmeta"
)

// PlatformMercari tags Mercari listings.
const PlatformMercari = "mercari"

var mercariItemRe = regexp.MustCompile(`/item/(m\d+)`)

// Mercari normalises Mercari listing payloads. Mercari item ids carry an
// "m" prefix (m123456789).
type Mercari struct {
	opts Options
}

// NewMercari constructs the Mercari adapter.
func NewMercari(opts Options) *Mercari {
	return &Mercari{opts: opts}
}

// Platform returns the adapter's platform tag.
func (m *Mercari) Platform() string { return PlatformMercari }

// Normalize canonicalises one Mercari payload.
func (m *Mercari) Normalize(raw RawListing, now time.Time) (bookmeta.Listing, error) {
	match := mercariItemRe.FindStringSubmatch(raw.URL)
	if match == nil {
		return bookmeta.Listing{}, fmt.Errorf("%w: no item id in url %q", ErrMalformedListing, raw.URL)
	}
	return build(PlatformMercari, match[1], raw, m.opts, now)
}

var _ Adapter = (*Mercari)(nil)
