package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

var statsNow = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func soldListing(price string, daysAgo int) bookmeta.Listing {
	p := decimal.RequireFromString(price)
	date := statsNow.AddDate(0, 0, -daysAgo)
	condition := "Good"
	return bookmeta.Listing{
		ISBN:      "9780553103540",
		Platform:  "ebay",
		Price:     &p,
		SoldDate:  &date,
		Condition: &condition,
	}
}

func TestComputeBasicStatistics(t *testing.T) {
	listings := []bookmeta.Listing{
		soldListing("10.00", 30),
		soldListing("20.00", 20),
		soldListing("30.00", 10),
	}

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, nil, statsNow, time.Hour)

	if snapshot.TotalCount != 3 || snapshot.SingleCount != 3 || snapshot.LotCount != 0 {
		t.Fatalf("counts wrong: %+v", snapshot)
	}
	if snapshot.MinPrice.String() != "10" || snapshot.MaxPrice.String() != "30" {
		t.Fatalf("min/max wrong: %s / %s", snapshot.MinPrice, snapshot.MaxPrice)
	}
	if snapshot.MedianPrice.String() != "20" {
		t.Fatalf("median wrong: %s", snapshot.MedianPrice)
	}
	if snapshot.AvgPrice.String() != "20" {
		t.Fatalf("mean wrong: %s", snapshot.AvgPrice)
	}
	if snapshot.StdDev.String() != "10" {
		t.Fatalf("sample stddev wrong: %s", snapshot.StdDev)
	}
	if snapshot.Completeness != 1.0 {
		t.Fatalf("completeness wrong: %f", snapshot.Completeness)
	}
	if !snapshot.ExpiresAt.Equal(statsNow.Add(time.Hour)) {
		t.Fatalf("expiry wrong: %s", snapshot.ExpiresAt)
	}
}

func TestComputeEvenCountMedianAveragesMiddlePair(t *testing.T) {
	listings := []bookmeta.Listing{
		soldListing("10.00", 4),
		soldListing("20.00", 3),
		soldListing("30.00", 2),
		soldListing("40.00", 1),
	}

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, nil, statsNow, time.Hour)

	if snapshot.MedianPrice.String() != "25" {
		t.Fatalf("even-count median should average middle pair, got %s", snapshot.MedianPrice)
	}
}

func TestComputeExcludesLotsFromPrices(t *testing.T) {
	lotPrice := decimal.RequireFromString("5.00")
	lotDate := statsNow.AddDate(0, 0, -5)
	lot := bookmeta.Listing{
		ISBN:     "9780553103540",
		Platform: "ebay",
		Price:    &lotPrice,
		SoldDate: &lotDate,
		IsLot:    true,
	}

	listings := []bookmeta.Listing{
		soldListing("10.00", 30),
		soldListing("30.00", 10),
		lot,
	}

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, nil, statsNow, time.Hour)

	if snapshot.TotalCount != 3 {
		t.Fatalf("lots should count toward total, got %d", snapshot.TotalCount)
	}
	if snapshot.LotCount != 1 || snapshot.SingleCount != 2 {
		t.Fatalf("lot/single split wrong: %+v", snapshot)
	}
	if snapshot.MinPrice.String() != "10" {
		t.Fatalf("lot price leaked into statistics: min=%s", snapshot.MinPrice)
	}
}

func TestComputeNoPricedListingsIsValid(t *testing.T) {
	date := statsNow.AddDate(0, 0, -5)
	listings := []bookmeta.Listing{
		{ISBN: "9780553103540", Platform: "ebay", SoldDate: &date},
	}

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, nil, statsNow, time.Hour)

	if snapshot.TotalCount != 1 {
		t.Fatalf("total wrong: %d", snapshot.TotalCount)
	}
	if snapshot.MedianPrice != nil || snapshot.MinPrice != nil || snapshot.MaxPrice != nil {
		t.Fatalf("price fields should stay nil with no priced listings: %+v", snapshot)
	}
	if snapshot.Completeness != 0 {
		t.Fatalf("completeness wrong: %f", snapshot.Completeness)
	}
}

func TestComputePercentilesNearestRank(t *testing.T) {
	listings := make([]bookmeta.Listing, 0, 10)
	for i := 1; i <= 10; i++ {
		listings = append(listings, soldListing(decimal.NewFromInt(int64(i*10)).String(), i))
	}

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, nil, statsNow, time.Hour)

	if snapshot.P25Price.String() != "30" {
		t.Fatalf("p25 wrong: %s", snapshot.P25Price)
	}
	if snapshot.P75Price.String() != "80" {
		t.Fatalf("p75 wrong: %s", snapshot.P75Price)
	}
}

func TestComputeSellThrough(t *testing.T) {
	listings := []bookmeta.Listing{
		soldListing("10.00", 30),
		soldListing("20.00", 20),
		soldListing("30.00", 10),
	}
	active := 1

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, &active, statsNow, time.Hour)

	if snapshot.SellThrough == nil || snapshot.SellThrough.String() != "0.75" {
		t.Fatalf("sell-through wrong: %v", snapshot.SellThrough)
	}
}

func TestComputeSellThroughNullWithoutActiveCount(t *testing.T) {
	listings := []bookmeta.Listing{soldListing("10.00", 1)}

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, nil, statsNow, time.Hour)

	if snapshot.SellThrough != nil {
		t.Fatalf("sell-through should be null without an active count, got %s", snapshot.SellThrough)
	}
}

func TestComputeSalesPerMonth(t *testing.T) {
	listings := []bookmeta.Listing{
		soldListing("10.00", 60),
		soldListing("20.00", 30),
		soldListing("30.00", 0),
	}

	snapshot := Compute("9780553103540", bookmeta.PlatformAll, 365, listings, nil, statsNow, time.Hour)

	// 3 sales over a 60-day span = 1.5 sales per month.
	if snapshot.SalesPerMonth == nil || snapshot.SalesPerMonth.String() != "1.5" {
		t.Fatalf("sales-per-month wrong: %v", snapshot.SalesPerMonth)
	}
}
