package payoff

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"zerodha-risk/internal/models"
)

// legGen produces legs whose strikes and premiums are exactly representable,
// so reordering or power-of-two scaling never changes a floating-point sum.
func legGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Leg{}), map[string]gopter.Gen{
		"Strike": gen.IntRange(50, 150).Map(func(v int) float64 {
			return float64(v)
		}),
		"Type":     gen.OneConstOf(models.Call, models.Put),
		"Quantity": gen.OneConstOf(int64(-3), int64(-2), int64(-1), int64(1), int64(2), int64(3)),
		"Premium": gen.IntRange(0, 40).Map(func(v int) float64 {
			return float64(v) / 4
		}),
	})
}

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.MaxSize = 8
	parameters.Rng.Seed(time.Now().UnixNano())
	return parameters
}

// Property: multiplying every quantity by the same positive constant leaves
// the breakevens unchanged.
func TestProperty_BreakevensScaleInvariant(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("scaling quantities keeps breakevens", prop.ForAll(
		func(legs []models.Leg, factor int64) bool {
			scaled := make(models.Position, len(legs))
			for i, l := range legs {
				l.Quantity *= factor
				scaled[i] = l
			}
			return reflect.DeepEqual(Breakevens(legs), Breakevens(scaled))
		},
		gen.SliceOf(legGen()),
		gen.OneConstOf(int64(2), int64(4), int64(8), int64(64)),
	))

	properties.TestingRun(t)
}

// Property: the order of legs does not matter.
func TestProperty_BreakevensOrderInvariant(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("permuting legs keeps breakevens", prop.ForAll(
		func(legs []models.Leg, shift int) bool {
			permuted := rotateReverse(legs, shift)
			return reflect.DeepEqual(Breakevens(legs), Breakevens(permuted))
		},
		gen.SliceOf(legGen()),
		gen.IntRange(0, 7),
	))

	properties.TestingRun(t)
}

// Property: every reported breakeven is a zero of the payoff, up to rounding,
// and the list is strictly ascending.
func TestProperty_BreakevensAreRoots(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("payoff vanishes at each breakeven", prop.ForAll(
		func(legs []models.Leg) bool {
			bes := Breakevens(legs)
			var slope float64
			for _, l := range legs {
				slope += math.Abs(float64(l.Quantity))
			}
			for i, be := range bes {
				if i > 0 && bes[i-1] >= be {
					return false
				}
				// Rounding moves the root by at most half a cent.
				if math.Abs(Payoff(be, legs)) > slope*0.005+1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(legGen()),
	))

	properties.TestingRun(t)
}

// Property: payoff has no jump at any strike.
func TestProperty_PayoffContinuousAtStrikes(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("left and right limits agree at strikes", prop.ForAll(
		func(legs []models.Leg) bool {
			const eps = 1e-9
			for _, k := range models.Position(legs).Strikes() {
				if math.Abs(Payoff(k-eps, legs)-Payoff(k+eps, legs)) > 1e-6 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(legGen()),
	))

	properties.TestingRun(t)
}

func rotateReverse(legs []models.Leg, shift int) models.Position {
	n := len(legs)
	out := make(models.Position, n)
	for i := range legs {
		out[n-1-i] = legs[(i+shift)%n]
	}
	return out
}
