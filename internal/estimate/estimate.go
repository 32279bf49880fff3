// Package estimate derives a sold-price range from active-listing prices
// when no genuine sold comparables exist. The ratios are a deliberate,
// documented policy choice, not fitted to data; they live in configuration
// so they can be revisited without touching merge logic.
package estimate

import (
	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

// SourceActiveEstimate tags sold comps produced by this heuristic.
const SourceActiveEstimate = "active_estimate"

// Ratios scale the active median down to an estimated sold range.
type Ratios struct {
	Median decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

// DefaultRatios return the standing policy: sold prices settle around
// three quarters of asking.
func DefaultRatios() Ratios {
	return Ratios{
		Median: decimal.NewFromFloat(0.75),
		Min:    decimal.NewFromFloat(0.65),
		Max:    decimal.NewFromFloat(0.85),
	}
}

// Estimator produces fallback sold-comps summaries.
type Estimator struct {
	ratios Ratios
}

// New constructs an Estimator with the given ratios.
func New(ratios Ratios) *Estimator {
	return &Estimator{ratios: ratios}
}

// Estimate returns an estimated sold-comps summary for the record, or
// (nil, false) when the heuristic does not apply. It applies only when the
// record has no genuine sold median (nil or zero) and carries a positive
// active median and active count, so real comparables are never overwritten.
func (e *Estimator) Estimate(record *bookmeta.CanonicalBookRecord) (*bookmeta.SoldComps, bool) {
	if record == nil {
		return nil, false
	}
	if record.SoldComps.HasMedian() {
		return nil, false
	}
	if record.ActiveMedian == nil || !record.ActiveMedian.IsPositive() {
		return nil, false
	}
	if record.ActiveCount == nil || *record.ActiveCount <= 0 {
		return nil, false
	}

	median := record.ActiveMedian.Mul(e.ratios.Median).Round(2)
	min := record.ActiveMedian.Mul(e.ratios.Min).Round(2)
	max := record.ActiveMedian.Mul(e.ratios.Max).Round(2)

	return &bookmeta.SoldComps{
		Count:      *record.ActiveCount,
		Min:        &min,
		Median:     &median,
		Max:        &max,
		IsEstimate: true,
		Source:     SourceActiveEstimate,
	}, true
}
