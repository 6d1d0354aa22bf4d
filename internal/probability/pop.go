package probability

import (
	"math"
	"sort"

	"zerodha-risk/internal/models"
	"zerodha-risk/internal/payoff"
)

const (
	// practicalInfinity closes the last price interval.
	practicalInfinity = 1e12
	minWidth          = 1e-9
)

// Region is one interval of price space between adjacent critical points,
// classified by the sign of the payoff inside it.
type Region struct {
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Profit bool    `json:"profit"`
}

// CDF is the distribution a probability of profit is integrated against.
type CDF interface {
	CumulativeProbability(price float64) float64
}

// ProfitRegions partitions [0, ∞) at every strike and every exact payoff
// root, then classifies each interval by the payoff at its midpoint. Kinks
// only occur at strikes and sign changes only at roots, so the sign is
// constant inside an interval.
func ProfitRegions(legs models.Position) []Region {
	points := criticalPoints(legs)
	regions := make([]Region, 0, len(points)-1)
	for i := 0; i < len(points)-1; i++ {
		lo, hi := points[i], points[i+1]
		if hi-lo < minWidth {
			continue
		}
		mid := (lo + hi) / 2
		regions = append(regions, Region{
			Low:    lo,
			High:   hi,
			Profit: payoff.Payoff(mid, legs) >= 0,
		})
	}
	return regions
}

// ProbabilityOfProfit returns the probability mass of the terminal price
// falling where the position's payoff is non-negative. With no legs the
// payoff is identically zero and the result is 1.
//
// Prices are split at the exact payoff roots as well as at 0, the strikes
// and 1e12, so a long call K=100 with premium 5 integrates P(S > 105). A
// partition on strikes alone would classify the whole (100, 1e12) piece by
// its midpoint and report P(S > 100).
func ProbabilityOfProfit(legs models.Position, dist CDF) float64 {
	var p float64
	for _, r := range ProfitRegions(legs) {
		if !r.Profit {
			continue
		}
		p += dist.CumulativeProbability(r.High) - dist.CumulativeProbability(r.Low)
	}
	return clamp(p, 0, 1)
}

func criticalPoints(legs models.Position) []float64 {
	points := make([]float64, 0, 2*len(legs)+3)
	points = append(points, 0)
	for _, k := range legs.Strikes() {
		if k > 0 && k < practicalInfinity {
			points = append(points, k)
		}
	}
	for _, x := range payoff.Roots(legs) {
		if x > 0 && x < practicalInfinity {
			points = append(points, x)
		}
	}
	points = append(points, practicalInfinity)
	sort.Float64s(points)
	return points
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
