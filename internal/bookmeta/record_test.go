package bookmeta

import (
	"testing"
	"time"
)

func TestDaysSinceSale(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		sold *time.Time
		want int
	}{
		{"active listing", nil, -1},
		{"sold today", timePtr(now.Add(-2 * time.Hour)), 0},
		{"sold three and a half days ago", timePtr(now.Add(-84 * time.Hour)), 3},
		{"sold ninety days ago", timePtr(now.AddDate(0, 0, -90)), 90},
	}

	for _, tc := range cases {
		listing := Listing{SoldDate: tc.sold}
		if got := listing.DaysSinceSale(now); got != tc.want {
			t.Fatalf("%s: DaysSinceSale = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestSold(t *testing.T) {
	now := time.Now().UTC()
	if (&Listing{}).Sold() {
		t.Fatal("listing without a sold date must be active")
	}
	if !(&Listing{SoldDate: &now}).Sold() {
		t.Fatal("listing with a sold date must be sold")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
