package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	absoluteDateRe = regexp.MustCompile(`(?i)([A-Za-z]{3})\.?\s+(\d{1,2}),?\s+(\d{4})`)
	relativeDateRe = regexp.MustCompile(`(?i)(\d+)\s+(hour|day|week|month)s?\s+ago`)
)

var soldDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	time.RFC3339,
}

// parseSoldDate normalises scraped sale-date text to a UTC calendar date.
// Handles ISO dates, "Jan 15, 2025" style, and relative phrases like
// "Sold 3 days ago". Unparseable or empty text yields nil, which marks the
// listing as active.
func parseSoldDate(text string, now time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	for _, layout := range soldDateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			date := parsed.UTC().Truncate(24 * time.Hour)
			return &date
		}
	}

	if match := absoluteDateRe.FindStringSubmatch(text); match != nil {
		composed := match[1] + " " + match[2] + " " + match[3]
		if parsed, err := time.Parse("Jan 2 2006", composed); err == nil {
			date := parsed.UTC()
			return &date
		}
	}

	if match := relativeDateRe.FindStringSubmatch(text); match != nil {
		amount, err := strconv.Atoi(match[1])
		if err != nil {
			return nil
		}
		var delta time.Duration
		switch strings.ToLower(match[2]) {
		case "hour":
			delta = time.Duration(amount) * time.Hour
		case "day":
			delta = time.Duration(amount) * 24 * time.Hour
		case "week":
			delta = time.Duration(amount) * 7 * 24 * time.Hour
		case "month":
			delta = time.Duration(amount) * 30 * 24 * time.Hour
		}
		date := now.Add(-delta).UTC().Truncate(24 * time.Hour)
		return &date
	}

	return nil
}
