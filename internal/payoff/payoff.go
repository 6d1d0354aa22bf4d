// Package payoff computes expiry profit/loss of option positions and the
// price levels at which it crosses zero.
package payoff

import (
	"math"

	"zerodha-risk/internal/models"
)

// Affine is a local slope/intercept representation of payoff, valid on a
// price interval that does not straddle any strike.
type Affine struct {
	Slope     float64
	Intercept float64
}

// Add returns the sum of two affine pieces.
func (a Affine) Add(b Affine) Affine {
	return Affine{Slope: a.Slope + b.Slope, Intercept: a.Intercept + b.Intercept}
}

// Eval evaluates the piece at price x.
func (a Affine) Eval(x float64) float64 {
	return a.Slope*x + a.Intercept
}

// Flat reports whether the piece has no meaningful slope.
func (a Affine) Flat() bool {
	return math.Abs(a.Slope) < flatSlope
}

// Root returns the price at which the piece is zero. It is only meaningful
// when the piece is not flat.
func (a Affine) Root() float64 {
	return -a.Intercept / a.Slope
}

const flatSlope = 1e-12

// Intrinsic returns the exercise value of one unit of the leg at spot.
func Intrinsic(spot float64, leg models.Leg) float64 {
	if leg.Type == models.Call {
		return math.Max(spot-leg.Strike, 0)
	}
	return math.Max(leg.Strike-spot, 0)
}

// Payoff returns the net expiry profit/loss of all legs at spot. Long legs
// pay premium and receive intrinsic value; short legs the reverse.
func Payoff(spot float64, legs models.Position) float64 {
	var total float64
	for _, leg := range legs {
		total += float64(leg.Quantity) * (Intrinsic(spot, leg) - leg.Premium)
	}
	return total
}

// Coefficients returns the leg's affine contribution on the side of its
// strike that contains at. Exactly at the strike, calls use the upper piece
// and puts the lower one; payoff is continuous there so either is correct.
func Coefficients(leg models.Leg, at float64) Affine {
	q := float64(leg.Quantity)
	if leg.Type == models.Call {
		if at < leg.Strike {
			return Affine{Slope: 0, Intercept: -q * leg.Premium}
		}
		return Affine{Slope: q, Intercept: -q * (leg.Strike + leg.Premium)}
	}
	if at > leg.Strike {
		return Affine{Slope: 0, Intercept: -q * leg.Premium}
	}
	return Affine{Slope: -q, Intercept: q * (leg.Strike - leg.Premium)}
}

// Decompose sums the affine contribution of every leg at the given point.
func Decompose(legs models.Position, at float64) Affine {
	var agg Affine
	for _, leg := range legs {
		agg = agg.Add(Coefficients(leg, at))
	}
	return agg
}
