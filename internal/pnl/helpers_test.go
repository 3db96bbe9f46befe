package pnl

import (
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"pnl-attribution/internal/models"
)

var (
	nyc  = mustLoad("America/New_York")
	day0 = time.Date(2025, 3, 14, 0, 0, 0, 0, nyc)
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// at returns day0 at the given wall-clock time.
func at(hour, min, sec int) time.Time {
	return time.Date(day0.Year(), day0.Month(), day0.Day(), hour, min, sec, 0, day0.Location())
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fill builds an execution for the SPY 500 call expiring 2025-03-21.
func fill(effect string, qty int, p string, t time.Time) models.Execution {
	return models.NewExecution("SPY Call", 500, "2025-03-21", qty, effect, t, price(p), 500, 0.20,
		models.OptionGreeks{Delta: 0.5, Theta: -0.1, Vega: 0.2, Gamma: 0.05})
}

// trip builds a round trip with the given scaled prices and close time.
func trip(openPrice, closePrice float64, qty int, closeTime time.Time) models.RoundTrip {
	return models.RoundTrip{
		Symbol:     "SPY Call",
		Strike:     500,
		Expiry:     "2025-03-21",
		Qty:        qty,
		OpenTime:   closeTime.Add(-10 * time.Minute),
		CloseTime:  closeTime,
		OpenPrice:  openPrice,
		ClosePrice: closePrice,
		OpenSpot:   500,
		CloseSpot:  500,
		OpenIV:     20,
		CloseIV:    20,
		Decomposition: models.Decomposition{
			DPnL: (closePrice - openPrice) * float64(qty),
		},
	}
}
