// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"

	"zerodha-risk/internal/models"
)

// Session manages broker authentication.
type Session interface {
	LoginURL() string
	CompleteLogin(ctx context.Context, requestToken string) error
	Logout(ctx context.Context) error
	IsAuthenticated() bool
	// VerifySession checks the token with the broker and returns the
	// account holder's name.
	VerifySession(ctx context.Context) (string, error)
}

// SpotProvider returns the current price of an underlying.
type SpotProvider interface {
	SpotPrice(ctx context.Context, symbol string) (float64, error)
}

// MarginCalculator computes the basket margin of a set of position rows.
type MarginCalculator interface {
	Margin(ctx context.Context, rows []models.Row) (*models.MarginSummary, error)
}

// Broker is everything the analysis service needs from a brokerage.
type Broker interface {
	Session
	SpotProvider
	MarginCalculator
}

var _ Broker = (*ZerodhaBroker)(nil)

// indexSymbols maps index names to their Kite quote keys.
var indexSymbols = map[string]string{
	"NIFTY":     "NSE:NIFTY 50",
	"BANKNIFTY": "NSE:NIFTY BANK",
	"FINNIFTY":  "NSE:NIFTY FIN SERVICE",
}
