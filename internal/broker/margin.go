package broker

import (
	"context"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/models"
)

// Margin computes the combined basket margin of the rows, as if every row
// were placed now as an NRML market order.
func (z *ZerodhaBroker) Margin(ctx context.Context, rows []models.Row) (*models.MarginSummary, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}
	if len(rows) == 0 {
		return nil, errors.ErrEmptyInput
	}

	instruments, err := z.instruments.Get(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := basketOrders(instruments, rows)
	if err != nil {
		return nil, err
	}

	params := kiteconnect.GetBasketParams{
		OrderParams:       orders,
		ConsiderPositions: false,
	}
	margins, err := kiteCall(ctx, z, "POST", "/margins/basket", func() (kiteconnect.BasketMargins, error) {
		return z.client.GetBasketMargins(params)
	})
	if err != nil {
		return nil, errors.NewBrokerError("margins", "failed to compute basket margin", err)
	}

	return &models.MarginSummary{
		InitialTotal: margins.Initial.Total,
		FinalTotal:   margins.Final.Total,
		SPAN:         margins.Initial.SPAN,
		Exposure:     margins.Initial.Exposure,
		OptionValue:  margins.Initial.OptionPremium,
	}, nil
}

func basketOrders(instruments []models.Instrument, rows []models.Row) ([]kiteconnect.OrderMarginParam, error) {
	orders := make([]kiteconnect.OrderMarginParam, 0, len(rows))
	for i, row := range rows {
		inst, err := ResolveContract(instruments, row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		orders = append(orders, rowToOrder(inst, row))
	}
	return orders, nil
}

func rowToOrder(inst models.Instrument, row models.Row) kiteconnect.OrderMarginParam {
	side := kiteconnect.TransactionTypeBuy
	qty := row.Leg.Quantity
	if qty < 0 {
		side = kiteconnect.TransactionTypeSell
		qty = -qty
	}

	return kiteconnect.OrderMarginParam{
		Exchange:        string(inst.Exchange),
		Tradingsymbol:   inst.Symbol,
		TransactionType: side,
		Variety:         kiteconnect.VarietyRegular,
		Product:         kiteconnect.ProductNRML,
		OrderType:       kiteconnect.OrderTypeMarket,
		Quantity:        float64(qty),
		Price:           0,
	}
}
