package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

func comps(count int, min, median, max string) *bookmeta.SoldComps {
	lo := decimal.RequireFromString(min)
	mid := decimal.RequireFromString(median)
	hi := decimal.RequireFromString(max)
	return &bookmeta.SoldComps{Count: count, Min: &lo, Median: &mid, Max: &hi}
}

func fullRecord() *bookmeta.CanonicalBookRecord {
	record := bookmeta.NewRecord("9780553103540", time.Now().UTC())
	title := "A Game of Thrones"
	publisher := "Bantam"
	pages := 694
	cover := "Hardcover"
	printing := "1st"
	edition := "First Edition"
	record.Title = &title
	record.Authors = []string{"George R. R. Martin"}
	record.Publisher = &publisher
	record.PageCount = &pages
	record.CoverType = &cover
	record.Printing = &printing
	record.Edition = &edition
	return &record
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreSaturatesAtCompsCap(t *testing.T) {
	scorer := New(DefaultConfig())

	record := fullRecord()
	record.SoldComps = comps(20, "15.00", "15.00", "15.00")
	capped := scorer.Score(record)

	record.SoldComps = comps(40, "15.00", "15.00", "15.00")
	beyond := scorer.Score(record)

	if !almostEqual(capped, beyond) {
		t.Fatalf("comps beyond the cap must add nothing: %f vs %f", capped, beyond)
	}
	// Full completeness, saturated comps, zero spread: every component maxed.
	if !almostEqual(capped, 1.0) {
		t.Fatalf("expected a perfect score, got %f", capped)
	}
}

func TestScoreCompletenessFraction(t *testing.T) {
	scorer := New(DefaultConfig())

	record := bookmeta.NewRecord("9780553103540", time.Now().UTC())
	if got := scorer.Score(&record); !almostEqual(got, 0) {
		t.Fatalf("empty record should score zero, got %f", got)
	}

	title := "A Game of Thrones"
	record.Title = &title
	// 1 of 7 bibliographic fields at weight 0.3.
	if got := scorer.Score(&record); !almostEqual(got, 0.3/7) {
		t.Fatalf("completeness fraction wrong: %f", got)
	}
}

func TestScoreConsistencyPenalizesSpread(t *testing.T) {
	scorer := New(DefaultConfig())

	tight := bookmeta.NewRecord("9780553103540", time.Now().UTC())
	tight.SoldComps = comps(8, "14.00", "15.00", "16.00")

	wide := bookmeta.NewRecord("9780553103540", time.Now().UTC())
	wide.SoldComps = comps(8, "5.00", "15.00", "40.00")

	if scorer.Score(&tight) <= scorer.Score(&wide) {
		t.Fatal("a wider min/max spread must score lower")
	}
}

func TestScoreZeroWithoutMedian(t *testing.T) {
	scorer := New(DefaultConfig())

	record := bookmeta.NewRecord("9780553103540", time.Now().UTC())
	record.SoldComps = &bookmeta.SoldComps{Count: 8}

	// Count contributes, consistency cannot without a median.
	want := float64(8) / 20 * 0.5
	if got := scorer.Score(&record); !almostEqual(got, want) {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestEligibleGate(t *testing.T) {
	scorer := New(DefaultConfig())

	median := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	cases := []struct {
		name   string
		count  int
		median *decimal.Decimal
		score  float64
		want   bool
	}{
		{"all thresholds met", 10, median("6.00"), 0.65, true},
		{"too few comps", 5, median("6.00"), 0.90, false},
		{"median too low", 10, median("4.00"), 0.90, false},
		{"score too low", 10, median("6.00"), 0.50, false},
		{"no median", 10, nil, 0.90, false},
		{"boundary values", 8, median("5.00"), 0.60, true},
	}

	for _, c := range cases {
		if got := scorer.Eligible(c.count, c.median, c.score); got != c.want {
			t.Fatalf("%s: Eligible = %t, want %t", c.name, got, c.want)
		}
	}
}

func TestEvaluateDerivesBothValues(t *testing.T) {
	scorer := New(DefaultConfig())

	record := fullRecord()
	record.SoldComps = comps(20, "14.00", "15.00", "16.00")

	score, eligible := scorer.Evaluate(record)
	if score < 0.6 {
		t.Fatalf("well-populated record should clear the score gate, got %f", score)
	}
	if !eligible {
		t.Fatal("record should be training eligible")
	}

	score, eligible = scorer.Evaluate(nil)
	if score != 0 || eligible {
		t.Fatalf("nil record should be (0, false), got (%f, %t)", score, eligible)
	}
}
