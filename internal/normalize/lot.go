package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// lotKeywords flag multi-book listings by phrase match. " lot " is
// space-bounded so "slot" and "ballot" do not trip it.
var lotKeywords = []string{
	"lot of",
	"set of",
	"bundle",
	"collection",
	"complete set",
	"full set",
	"entire set",
	"book lot",
	"novel lot",
	"books lot",
	"paperback lot",
	"hardcover lot",
	"mixed lot",
	" lot ",
	"lot-",
	"-lot",
	"(lot)",
	"[lot]",
	"qty",
	"quantity",
	"bulk",
	"wholesale",
	"complete series",
	"full series",
	"entire series",
}

var lotPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+\s*(?:book|novel|paperback|hardcover)s?\s*(?:lot)?`),
	regexp.MustCompile(`(?i)lot\s*[-:]?\s*(?:of\s*)?\d+`),
	regexp.MustCompile(`(?i)set\s*[-:]?\s*(?:of\s*)?\d+`),
	regexp.MustCompile(`(?i)(?:qty|quantity)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\d+\s*(?:pc|pcs|piece)s?`),
	regexp.MustCompile(`(?i)#\d+\s*(?:book|novel)s?`),
	regexp.MustCompile(`(?i)(?:\d+\s*x|x\s*\d+)\s*(?:book|novel)s?`),
}

var lotSizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)lot\s*[-:]?\s*(?:of\s*)?(\d+)`),
	regexp.MustCompile(`(?i)set\s*[-:]?\s*(?:of\s*)?(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:book|novel)s?\s*(?:lot)?`),
	regexp.MustCompile(`(?i)(?:qty|quantity)\s*:?\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:pc|pcs|piece)s?`),
	regexp.MustCompile(`(?i)#(\d+)`),
	regexp.MustCompile(`(?i)(?:(\d+)\s*x|x\s*(\d+))`),
}

const (
	minLotSize = 2
	maxLotSize = 50
)

// IsLot reports whether a listing title describes a multi-book lot.
// Lots stay stored but are excluded from single-item price statistics.
func IsLot(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range lotKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range lotPatterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// ExtractLotSize pulls the book count out of a lot title. Counts outside
// [2, 50] are treated as false positives and dropped.
func ExtractLotSize(title string) *int {
	if title == "" {
		return nil
	}
	for _, re := range lotSizePatterns {
		match := re.FindStringSubmatch(title)
		if match == nil {
			continue
		}
		for _, group := range match[1:] {
			if group == "" {
				continue
			}
			n, err := strconv.Atoi(group)
			if err != nil {
				continue
			}
			if n >= minLotSize && n <= maxLotSize {
				return &n
			}
		}
	}
	return nil
}
