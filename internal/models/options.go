package models

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"zerodha-risk/internal/errors"
)

// OptionType represents the kind of an option contract.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// ParseOptionType parses CE/PE (or CALL/PUT) case-insensitively.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CE", "CALL", "C":
		return Call, nil
	case "PE", "PUT", "P":
		return Put, nil
	}
	return "", errors.NewValidationError(errors.ErrInvalidLeg, "option_type", s, "only CE / PE supported")
}

// String returns the exchange notation of the option type.
func (t OptionType) String() string {
	return string(t)
}

// Valid reports whether t is a supported option type.
func (t OptionType) Valid() bool {
	return t == Call || t == Put
}

// Leg represents one option position line.
// Quantity is signed: positive is net long, negative is net short.
type Leg struct {
	Strike   float64    `json:"strike"`
	Type     OptionType `json:"option_type"`
	Quantity int64      `json:"quantity"`
	Premium  float64    `json:"premium"`
}

// NewLeg creates a validated Leg.
func NewLeg(strike float64, optType OptionType, quantity int64, premium float64) (Leg, error) {
	leg := Leg{
		Strike:   strike,
		Type:     optType,
		Quantity: quantity,
		Premium:  premium,
	}
	if err := leg.Validate(); err != nil {
		return Leg{}, err
	}
	return leg, nil
}

// Validate checks the leg invariants.
func (l Leg) Validate() error {
	if math.IsNaN(l.Strike) || math.IsInf(l.Strike, 0) || l.Strike <= 0 {
		return errors.NewValidationError(errors.ErrInvalidLeg, "strike", l.Strike, "must be a positive number")
	}
	if !l.Type.Valid() {
		return errors.NewValidationError(errors.ErrInvalidLeg, "option_type", l.Type, "only CE / PE supported")
	}
	if l.Quantity == 0 {
		return errors.NewValidationError(errors.ErrInvalidLeg, "quantity", l.Quantity, "must be non-zero")
	}
	if math.IsNaN(l.Premium) || math.IsInf(l.Premium, 0) || l.Premium < 0 {
		return errors.NewValidationError(errors.ErrInvalidLeg, "premium", l.Premium, "must be zero or positive")
	}
	return nil
}

// IsLong reports whether the leg is a net long position.
func (l Leg) IsLong() bool {
	return l.Quantity > 0
}

func (l Leg) String() string {
	side := "BUY"
	if !l.IsLong() {
		side = "SELL"
	}
	return fmt.Sprintf("%s %d %.2f %s @ %.2f", side, abs64(l.Quantity), l.Strike, l.Type, l.Premium)
}

// Position is an ordered sequence of legs. Duplicate strikes and types are
// legal and each leg contributes independently.
type Position []Leg

// Validate checks every leg of the position.
func (p Position) Validate() error {
	for i, leg := range p {
		if err := leg.Validate(); err != nil {
			return errors.Wrapf(err, "leg %d", i+1)
		}
	}
	return nil
}

// Strikes returns the distinct strikes in ascending order.
func (p Position) Strikes() []float64 {
	seen := make(map[float64]struct{}, len(p))
	strikes := make([]float64, 0, len(p))
	for _, leg := range p {
		if _, ok := seen[leg.Strike]; ok {
			continue
		}
		seen[leg.Strike] = struct{}{}
		strikes = append(strikes, leg.Strike)
	}
	sort.Float64s(strikes)
	return strikes
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
