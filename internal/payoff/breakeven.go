package payoff

import (
	"sort"

	"github.com/shopspring/decimal"

	"zerodha-risk/internal/models"
)

// sentinel bounds the outermost partitions; far beyond any traded price.
const sentinel = 1e18

// Roots returns the exact zero crossings of the aggregate payoff, one per
// strike partition at most, in ascending order. A root lying on a strike may
// appear twice.
//
// Payoff is piecewise linear with kinks only at strikes, so each interval
// between adjacent strikes is a single affine piece.
func Roots(legs models.Position) []float64 {
	strikes := legs.Strikes()
	bounds := make([]float64, 0, len(strikes)+2)
	bounds = append(bounds, -sentinel)
	bounds = append(bounds, strikes...)
	bounds = append(bounds, sentinel)

	var roots []float64
	for i := 0; i < len(bounds)-1; i++ {
		lo, hi := bounds[i], bounds[i+1]

		at := (lo + hi) / 2
		if lo == -sentinel {
			at = hi - 1
		}

		piece := Decompose(legs, at)
		if piece.Flat() {
			continue
		}

		// Extrapolating the line outside [lo, hi] gives spurious roots.
		x := piece.Root()
		if x >= lo && x <= hi {
			roots = append(roots, x)
		}
	}
	return roots
}

// Breakevens returns every price at which the aggregate expiry payoff is
// zero, rounded to 2 decimal places, deduplicated and ascending.
func Breakevens(legs models.Position) []float64 {
	seen := make(map[float64]struct{})
	result := make([]float64, 0, 2)
	for _, x := range Roots(legs) {
		rounded := Round2(x)
		if _, ok := seen[rounded]; ok {
			continue
		}
		seen[rounded] = struct{}{}
		result = append(result, rounded)
	}
	sort.Float64s(result)
	return result
}

// Round2 rounds x to two decimal places, half to even on the exact binary
// value of x. 2.675 is stored just below the tie and rounds to 2.67.
func Round2(x float64) float64 {
	return decimal.NewFromFloatWithExponent(x, exactExponent).RoundBank(2).InexactFloat64()
}

// exactExponent is small enough that every float64 converts without loss.
const exactExponent = -1074
