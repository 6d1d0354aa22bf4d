package models

import "time"

// Row is one parsed position line: a leg tied to its underlying and expiry.
type Row struct {
	Symbol string    `json:"symbol"`
	Expiry time.Time `json:"expiry"`
	Leg    Leg       `json:"leg"`
	Value  float64   `json:"value"` // cash flow at trade time, -qty·premium
}

// MarginSummary holds the basket margin requirement of a set of rows.
type MarginSummary struct {
	InitialTotal float64 `json:"initial_total"`
	FinalTotal   float64 `json:"final_total"`
	SPAN         float64 `json:"span"`
	Exposure     float64 `json:"exposure"`
	OptionValue  float64 `json:"option_premium"`
}

// PriceRegion is an interval of terminal prices over which the position
// either makes or loses money, with the model probability of landing in it.
type PriceRegion struct {
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	Profit      bool    `json:"profit"`
	Probability float64 `json:"probability"`
}

// Report is the result of analysing one position book.
type Report struct {
	ID                  string         `json:"id"`
	CreatedAt           time.Time      `json:"created_at"`
	ValuationDate       time.Time      `json:"valuation_date"`
	Symbol              string         `json:"symbol"`
	Expiry              time.Time      `json:"expiry"`
	Spot                float64        `json:"spot"`
	Volatility          float64        `json:"volatility"`
	TimeToExpiry        float64        `json:"time_to_expiry"`
	Rows                []Row          `json:"rows"`
	TotalValue          float64        `json:"total_value"`
	Breakevens          []float64      `json:"breakevens"`
	ProbabilityOfProfit float64        `json:"probability_of_profit"`
	Regions             []PriceRegion  `json:"regions"`
	MaxProfit           float64        `json:"max_profit"` // best payoff over [0, last strike]
	MaxLoss             float64        `json:"max_loss"`   // worst payoff over [0, last strike]
	UnboundedProfit     bool           `json:"unbounded_profit"`
	UnboundedLoss       bool           `json:"unbounded_loss"`
	Margin              *MarginSummary `json:"margin,omitempty"`
}

// Legs returns the legs of the report rows in order.
func (r *Report) Legs() Position {
	legs := make(Position, len(r.Rows))
	for i, row := range r.Rows {
		legs[i] = row.Leg
	}
	return legs
}

// PoPPercent returns the probability of profit scaled for display.
func (r *Report) PoPPercent() float64 {
	return r.ProbabilityOfProfit * 100
}
