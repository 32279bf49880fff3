package stats

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

// Compute builds one statistics snapshot from sold listings already filtered
// to the lookback window. Price statistics cover single-item (non-lot)
// listings with a non-null price; lots are counted but never priced.
// Zero priced listings is a valid result: count fields are set and every
// price field stays nil.
func Compute(isbn, platform string, lookbackDays int, listings []bookmeta.Listing, activeCount *int, now time.Time, ttl time.Duration) bookmeta.StatisticsSnapshot {
	snapshot := bookmeta.StatisticsSnapshot{
		ISBN:         isbn,
		Platform:     platform,
		LookbackDays: lookbackDays,
		ActiveCount:  activeCount,
		ComputedAt:   now,
		ExpiresAt:    now.Add(ttl),
	}

	prices := make([]decimal.Decimal, 0, len(listings))
	complete := 0
	var soldDates []time.Time

	for _, listing := range listings {
		snapshot.TotalCount++
		if listing.IsLot {
			snapshot.LotCount++
		} else {
			snapshot.SingleCount++
			if listing.Price != nil && listing.Price.IsPositive() {
				prices = append(prices, *listing.Price)
			}
		}
		if listing.Price != nil && listing.Condition != nil {
			complete++
		}
		if listing.SoldDate != nil {
			soldDates = append(soldDates, *listing.SoldDate)
		}
	}

	if snapshot.TotalCount > 0 {
		snapshot.Completeness = float64(complete) / float64(snapshot.TotalCount)
	}

	if len(prices) > 0 {
		sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
		snapshot.MinPrice = &prices[0]
		snapshot.MaxPrice = &prices[len(prices)-1]
		median := medianOf(prices)
		snapshot.MedianPrice = &median
		avg := meanOf(prices)
		snapshot.AvgPrice = &avg
		stdDev := stdDevOf(prices, avg)
		snapshot.StdDev = &stdDev
		p25 := percentileOf(prices, 0.25)
		snapshot.P25Price = &p25
		p75 := percentileOf(prices, 0.75)
		snapshot.P75Price = &p75
	}

	if perMonth := salesPerMonth(soldDates); perMonth != nil {
		snapshot.SalesPerMonth = perMonth
	}

	if activeCount != nil {
		sold := snapshot.TotalCount
		if total := sold + *activeCount; total > 0 {
			rate := decimal.NewFromInt(int64(sold)).
				Div(decimal.NewFromInt(int64(total))).
				Round(4)
			snapshot.SellThrough = &rate
		}
	}

	return snapshot
}

// medianOf expects prices sorted ascending.
func medianOf(prices []decimal.Decimal) decimal.Decimal {
	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return prices[n/2-1].Add(prices[n/2]).Div(decimal.NewFromInt(2))
}

func meanOf(prices []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices)))).Round(2)
}

// stdDevOf computes the sample standard deviation; one price yields zero.
func stdDevOf(prices []decimal.Decimal, mean decimal.Decimal) decimal.Decimal {
	if len(prices) < 2 {
		return decimal.Zero
	}
	sumSq := decimal.Zero
	for _, p := range prices {
		diff := p.Sub(mean)
		sumSq = sumSq.Add(diff.Mul(diff))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(len(prices) - 1)))
	f, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(f)).Round(2)
}

// percentileOf expects prices sorted ascending and uses nearest-rank
// indexing (index = floor(n * q)).
func percentileOf(prices []decimal.Decimal, q float64) decimal.Decimal {
	idx := int(float64(len(prices)) * q)
	if idx >= len(prices) {
		idx = len(prices) - 1
	}
	return prices[idx]
}

// salesPerMonth derives sales velocity from the span of dated sales.
func salesPerMonth(dates []time.Time) *decimal.Decimal {
	if len(dates) == 0 {
		return nil
	}
	minDate, maxDate := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}
	spanDays := maxDate.Sub(minDate).Hours() / 24
	if spanDays <= 0 {
		rate := decimal.NewFromInt(int64(len(dates)))
		return &rate
	}
	rate := decimal.NewFromInt(int64(len(dates))).
		Div(decimal.NewFromFloat(spanDays / 30.0)).
		Round(2)
	return &rate
}
