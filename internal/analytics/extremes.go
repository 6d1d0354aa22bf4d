package analytics

import (
	"math"

	"zerodha-risk/internal/models"
	"zerodha-risk/internal/payoff"
)

type extremes struct {
	maxProfit       float64
	maxLoss         float64
	unboundedProfit bool
	unboundedLoss   bool
}

// payoffExtremes finds the best and worst expiry payoff. The payoff is
// piecewise linear with kinks only at strikes, so on [0, last strike] the
// extremes sit at zero or a strike; beyond the last strike the slope
// decides whether it grows without bound.
func payoffExtremes(legs models.Position) extremes {
	strikes := legs.Strikes()
	points := append([]float64{0}, strikes...)

	e := extremes{maxProfit: math.Inf(-1), maxLoss: math.Inf(1)}
	for _, x := range points {
		v := payoff.Payoff(x, legs)
		e.maxProfit = math.Max(e.maxProfit, v)
		e.maxLoss = math.Min(e.maxLoss, v)
	}

	if len(strikes) > 0 {
		tail := payoff.Decompose(legs, strikes[len(strikes)-1]+1)
		if !tail.Flat() {
			e.unboundedProfit = tail.Slope > 0
			e.unboundedLoss = tail.Slope < 0
		}
	}
	return e
}
