// Package models provides the domain types shared across the risk desk.
package models

import (
	"time"
)

// Exchange represents a Kite exchange segment.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
	BFO Exchange = "BFO" // BSE F&O
	CDS Exchange = "CDS" // Currency
	MCX Exchange = "MCX" // Commodity
)

// Instrument is one row of the Kite instrument dump.
type Instrument struct {
	Token     uint32
	Symbol    string // tradingsymbol, e.g. ITC26FEB263.5PE
	Name      string // underlying, e.g. ITC
	Exchange  Exchange
	Segment   string
	LotSize   int
	TickSize  float64
	Expiry    time.Time
	Strike    float64
	InstrType string // CE, PE, FUT or EQ
}

// IsOption reports whether the instrument is an option contract.
func (i Instrument) IsOption() bool {
	return i.InstrType == string(Call) || i.InstrType == string(Put)
}
