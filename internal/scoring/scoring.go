// Package scoring derives the composite training-quality score and the
// eligibility gate from canonical record state. Both are pure functions of
// the record: they are recomputed whenever a contributing field changes and
// are never cached apart from their inputs, and no source adapter may set
// them directly.
package scoring

import (
	"github.com/shopspring/decimal"

	"book-comps/internal/bookmeta"
)

// Config exposes the composite weights and gate thresholds. The internal
// weighting is an open parameter for the downstream trainer to revisit; the
// gate thresholds are fixed policy.
type Config struct {
	// CompsCap is the comparable-sale count at which the comps component
	// saturates; more comparables beyond the cap add nothing.
	CompsCap int
	// CompsWeight scales the saturating comps-count component.
	CompsWeight float64
	// CompletenessWeight scales the bibliographic completeness component.
	CompletenessWeight float64
	// ConsistencyWeight scales the price-consistency component; a narrower
	// min/median/max spread scores higher.
	ConsistencyWeight float64
	// MaxSpread is the (max-min)/median ratio at which consistency hits zero.
	MaxSpread float64

	// Gate thresholds. All three are independently necessary.
	MinComps  int
	MinMedian decimal.Decimal
	MinScore  float64
}

// DefaultConfig mirrors the configured defaults.
func DefaultConfig() Config {
	return Config{
		CompsCap:           20,
		CompsWeight:        0.5,
		CompletenessWeight: 0.3,
		ConsistencyWeight:  0.2,
		MaxSpread:          2.0,
		MinComps:           8,
		MinMedian:          decimal.NewFromInt(5),
		MinScore:           0.6,
	}
}

// Scorer evaluates records against the configured policy.
type Scorer struct {
	cfg Config
}

// New constructs a Scorer.
func New(cfg Config) *Scorer {
	if cfg.CompsCap <= 0 {
		cfg.CompsCap = 20
	}
	return &Scorer{cfg: cfg}
}

// Score computes the composite quality score in [0, 1].
func (s *Scorer) Score(record *bookmeta.CanonicalBookRecord) float64 {
	if record == nil {
		return 0
	}

	score := s.compsComponent(record.SoldComps) +
		s.completenessComponent(record) +
		s.consistencyComponent(record.SoldComps)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Eligible applies the training gate: comp count, median price floor, and
// quality score must each clear their threshold; none alone is sufficient.
func (s *Scorer) Eligible(compsCount int, compsMedian *decimal.Decimal, score float64) bool {
	if compsCount < s.cfg.MinComps {
		return false
	}
	if compsMedian == nil || compsMedian.LessThan(s.cfg.MinMedian) {
		return false
	}
	return score >= s.cfg.MinScore
}

// Evaluate computes both derived values for a record.
func (s *Scorer) Evaluate(record *bookmeta.CanonicalBookRecord) (float64, bool) {
	score := s.Score(record)
	var (
		count  int
		median *decimal.Decimal
	)
	if record != nil && record.SoldComps != nil {
		count = record.SoldComps.Count
		median = record.SoldComps.Median
	}
	return score, s.Eligible(count, median, score)
}

func (s *Scorer) compsComponent(comps *bookmeta.SoldComps) float64 {
	if comps == nil || comps.Count <= 0 {
		return 0
	}
	fraction := float64(comps.Count) / float64(s.cfg.CompsCap)
	if fraction > 1 {
		fraction = 1
	}
	return fraction * s.cfg.CompsWeight
}

func (s *Scorer) completenessComponent(record *bookmeta.CanonicalBookRecord) float64 {
	present := 0
	for _, key := range bookmeta.BibliographicFields {
		if fieldPresent(record, key) {
			present++
		}
	}
	fraction := float64(present) / float64(len(bookmeta.BibliographicFields))
	return fraction * s.cfg.CompletenessWeight
}

func (s *Scorer) consistencyComponent(comps *bookmeta.SoldComps) float64 {
	if comps == nil || comps.Min == nil || comps.Max == nil || !comps.HasMedian() {
		return 0
	}
	spread, _ := comps.Max.Sub(*comps.Min).Div(*comps.Median).Float64()
	if spread < 0 {
		return 0
	}
	consistency := 1 - spread/s.cfg.MaxSpread
	if consistency < 0 {
		consistency = 0
	}
	return consistency * s.cfg.ConsistencyWeight
}

func fieldPresent(record *bookmeta.CanonicalBookRecord, key bookmeta.FieldKey) bool {
	switch key {
	case bookmeta.FieldTitle:
		return record.Title != nil
	case bookmeta.FieldAuthors:
		return len(record.Authors) > 0
	case bookmeta.FieldPublisher:
		return record.Publisher != nil
	case bookmeta.FieldPageCount:
		return record.PageCount != nil
	case bookmeta.FieldCoverType:
		return record.CoverType != nil
	case bookmeta.FieldPrinting:
		return record.Printing != nil
	case bookmeta.FieldEdition:
		return record.Edition != nil
	default:
		return false
	}
}
