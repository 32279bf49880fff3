package normalize

import "strings"

// conditionRanks maps scraped condition phrases to the standard vocabulary.
// Ordered most-specific first so "like new" wins over "new".
var conditionRanks = []struct {
	keyword  string
	standard string
}{
	{"brand new", "New"},
	{"like new", "Like New"},
	{"very good", "Very Good"},
	{"acceptable", "Acceptable"},
	{"poor", "Poor"},
	{"good", "Good"},
	{"new", "New"},
}

func normalizeCondition(text string) *string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}
	for _, c := range conditionRanks {
		if strings.Contains(lower, c.keyword) {
			standard := c.standard
			return &standard
		}
	}
	return nil
}
