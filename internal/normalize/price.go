package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceRe = regexp.MustCompile(`([\d,]+(?:\.\d+)?)`)

// parsePrice extracts a decimal price from scraped text. A price that fails
// to parse or falls outside the sanity bounds comes back as nil; the rest of
// the listing is preserved either way.
func parsePrice(text string, opts Options) *decimal.Decimal {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	match := priceRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	value, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return nil
	}

	if value.LessThan(opts.MinPrice) || value.GreaterThan(opts.MaxPrice) {
		return nil
	}
	return &value
}
