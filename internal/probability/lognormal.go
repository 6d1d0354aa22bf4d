// Package probability estimates the chance that an option position finishes
// in profit, under a lognormal model of the terminal underlying price.
package probability

import (
	"fmt"
	"math"
	"time"

	"zerodha-risk/internal/errors"
)

// Params are the inputs of the terminal price distribution.
type Params struct {
	Spot         float64 `json:"spot"`
	Volatility   float64 `json:"volatility"`     // annualized, e.g. 0.18 for 18%
	TimeToExpiry float64 `json:"time_to_expiry"` // years
}

// ParameterError reports a non-positive model parameter.
type ParameterError struct {
	Name  string
	Value float64
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: must be positive", e.Name, e.Value)
}

func (e *ParameterError) Unwrap() error {
	return errors.ErrInvalidParameter
}

// PriceModel is a validated, immutable lognormal terminal price model. It
// is safe for concurrent use.
type PriceModel struct {
	params Params
	sdev   float64 // σ√T
	drift  float64 // ½σ²T
}

// NewPriceModel validates p and builds the model.
func NewPriceModel(p Params) (*PriceModel, error) {
	checks := []struct {
		name  string
		value float64
	}{
		{"spot", p.Spot},
		{"volatility", p.Volatility},
		{"time_to_expiry", p.TimeToExpiry},
	}
	for _, c := range checks {
		if !(c.value > 0) || math.IsInf(c.value, 0) {
			return nil, &ParameterError{Name: c.name, Value: c.value}
		}
	}

	return &PriceModel{
		params: p,
		sdev:   p.Volatility * math.Sqrt(p.TimeToExpiry),
		drift:  0.5 * p.Volatility * p.Volatility * p.TimeToExpiry,
	}, nil
}

// Params returns the parameters the model was built with.
func (m *PriceModel) Params() Params {
	return m.params
}

// CumulativeProbability returns P(S_T <= price).
func (m *PriceModel) CumulativeProbability(price float64) float64 {
	if price <= 0 {
		return 0
	}
	z := (math.Log(price/m.params.Spot) + m.drift) / m.sdev
	return NormalCDF(z)
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// YearsToExpiry converts the calendar days between the valuation date and
// expiry into years on an actual/365 basis. Times of day are ignored.
func YearsToExpiry(valuation, expiry time.Time) float64 {
	return float64(DaysBetween(valuation, expiry)) / 365.0
}

// DaysBetween counts calendar days from a to b; negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// NewPriceModelForExpiry builds a model from dates instead of a year
// fraction. An expiry on or before the valuation date is rejected.
func NewPriceModelForExpiry(spot, volatility float64, valuation, expiry time.Time) (*PriceModel, error) {
	t := YearsToExpiry(valuation, expiry)
	m, err := NewPriceModel(Params{Spot: spot, Volatility: volatility, TimeToExpiry: t})
	if err != nil {
		var pe *ParameterError
		if errors.As(err, &pe) && pe.Name == "time_to_expiry" {
			return nil, fmt.Errorf("%w: expiry %s, valuation %s: %w", errors.ErrExpiryPassed,
				expiry.Format("02-Jan-2006"), valuation.Format("02-Jan-2006"), err)
		}
		return nil, err
	}
	return m, nil
}
