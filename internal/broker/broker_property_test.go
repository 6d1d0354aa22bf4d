package broker

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"zerodha-risk/internal/models"
)

// Property: every position row maps to a NRML market order whose side
// carries the sign of the quantity and whose size is its magnitude.
func TestProperty_RowToOrderPreservesSignedQuantity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	inst := models.Instrument{Symbol: "BANKNIFTY26FEB48000PE", Exchange: models.NFO}

	properties.Property("side and size reconstruct the signed quantity", prop.ForAll(
		func(qty int64) bool {
			if qty == 0 {
				return true
			}
			order := rowToOrder(inst, models.Row{Leg: models.Leg{Quantity: qty}})

			signed := int64(order.Quantity)
			if order.TransactionType == kiteconnect.TransactionTypeSell {
				signed = -signed
			}
			return signed == qty &&
				order.Quantity > 0 &&
				order.Product == kiteconnect.ProductNRML &&
				order.OrderType == kiteconnect.OrderTypeMarket
		},
		gen.Int64Range(-1_000_000, 1_000_000),
	))

	properties.TestingRun(t)
}

// Property: a contract resolves iff exactly one listed instrument shares
// the row's name, type, strike and expiry day.
func TestProperty_ResolveContractFindsListedStrike(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	expiry := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)
	var instruments []models.Instrument
	for strike := 200; strike <= 300; strike += 5 {
		for _, typ := range []string{"CE", "PE"} {
			instruments = append(instruments, models.Instrument{
				Symbol:    "ITC",
				Name:      "ITC",
				Exchange:  models.NFO,
				InstrType: typ,
				Strike:    float64(strike),
				Expiry:    expiry,
			})
		}
	}

	properties.Property("listed strikes resolve, others do not", prop.ForAll(
		func(strike int, isCall bool) bool {
			typ := models.Put
			if isCall {
				typ = models.Call
			}
			row := models.Row{
				Symbol: "ITC",
				Expiry: expiry,
				Leg:    models.Leg{Strike: float64(strike), Type: typ, Quantity: 1},
			}
			inst, err := ResolveContract(instruments, row)
			if strike%5 != 0 {
				return err != nil
			}
			return err == nil && inst.Strike == float64(strike) && inst.InstrType == string(typ)
		},
		gen.IntRange(200, 300),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
