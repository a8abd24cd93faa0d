package trading

import (
	"context"

	"fyers-trader/internal/models"
)

// AvailableFunds reads the usable equity balance from the fund-limit
// records. Any failure on this read path degrades to zero after
// logging; callers treat zero as "assume nothing is available".
func (d *Driver) AvailableFunds(ctx context.Context) float64 {
	funds, err := d.broker.GetFunds(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Funds fetch failed")
		return 0
	}

	for _, f := range funds {
		if f.ID == models.EquityFundID {
			return f.EquityAmount
		}
	}
	d.logger.Warn().Int("fund_id", models.EquityFundID).Msg("Equity fund record missing")
	return 0
}

// Affordable reports whether an order value fits in the available
// equity balance.
func (d *Driver) Affordable(ctx context.Context, price float64, qty int) bool {
	return price*float64(qty) <= d.AvailableFunds(ctx)
}
