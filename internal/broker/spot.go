package broker

import (
	"context"
	"strings"
	"time"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/models"
)

// SpotPrice resolves the underlying's current price. Indices use their NSE
// index quote, NSE equities their cash LTP, and anything else (commodities)
// the nearest unexpired MCX future as a proxy.
func (z *ZerodhaBroker) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)

	if key, ok := indexSymbols[symbol]; ok {
		return z.lastPrice(ctx, key)
	}

	instruments, err := z.instruments.Get(ctx)
	if err != nil {
		return 0, err
	}

	key, err := spotQuoteKey(instruments, symbol, z.today())
	if err != nil {
		return 0, err
	}

	z.logger.Debug().Str("symbol", symbol).Str("quote", key).Msg("Resolved spot instrument")
	return z.lastPrice(ctx, key)
}

// spotQuoteKey picks the quote key standing in for the underlying's spot.
func spotQuoteKey(instruments []models.Instrument, symbol string, today time.Time) (string, error) {
	for _, inst := range instruments {
		if inst.Exchange == models.NSE && inst.Symbol == symbol && inst.InstrType == "EQ" {
			return "NSE:" + symbol, nil
		}
	}

	var nearest *models.Instrument
	for i := range instruments {
		inst := &instruments[i]
		if inst.Exchange != models.MCX || inst.Name != symbol || inst.InstrType != "FUT" {
			continue
		}
		if dayOf(inst.Expiry).Before(dayOf(today)) {
			continue
		}
		if nearest == nil || inst.Expiry.Before(nearest.Expiry) {
			nearest = inst
		}
	}

	if nearest == nil {
		return "", errors.Wrapf(errors.ErrSymbolNotFound, "no NSE equity or MCX future for %s", symbol)
	}
	return string(nearest.Exchange) + ":" + nearest.Symbol, nil
}
