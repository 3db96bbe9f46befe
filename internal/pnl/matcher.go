// Package pnl reconstructs round trips from a day's option executions and
// attributes their realized P&L to Greek contributions.
package pnl

import (
	"math"

	"github.com/shopspring/decimal"

	"pnl-attribution/internal/models"
)

var hundred = decimal.NewFromInt(100)

// positionKey identifies executions that can offset each other. Quantity is
// part of the key, so different sizes of the same contract never match.
type positionKey struct {
	symbol string
	strike float64
	expiry string
	qty    int
	right  models.OptionRight
}

func keyOf(e models.Execution) positionKey {
	return positionKey{
		symbol: e.Symbol,
		strike: e.Strike,
		expiry: e.Expiry,
		qty:    e.Qty,
		right:  e.Right(),
	}
}

// openQueues holds pending opens per key in arrival order.
type openQueues map[positionKey][]models.Execution

func (q openQueues) push(k positionKey, e models.Execution) {
	q[k] = append(q[k], e)
}

func (q openQueues) pop(k positionKey) (models.Execution, bool) {
	pending := q[k]
	if len(pending) == 0 {
		return models.Execution{}, false
	}
	head := pending[0]
	if len(pending) == 1 {
		delete(q, k)
	} else {
		q[k] = pending[1:]
	}
	return head, true
}

func (q openQueues) len() int {
	n := 0
	for _, pending := range q {
		n += len(pending)
	}
	return n
}

// Match pairs opening and closing executions into round trips. Executions are
// processed in the given order; the oldest pending open of a key is closed
// first. Closes without a pending open and opens never closed are dropped.
func Match(executions []models.Execution) []models.RoundTrip {
	trips, _ := MatchWithStats(executions)
	return trips
}

// MatchWithStats is Match plus counts of what was matched and skipped.
func MatchWithStats(executions []models.Execution) ([]models.RoundTrip, models.MatchStats) {
	var stats models.MatchStats
	trips := make([]models.RoundTrip, 0)
	opens := make(openQueues)

	for _, e := range executions {
		k := keyOf(e)
		switch e.PositionEffect() {
		case models.EffectOpen:
			stats.Opens++
			opens.push(k, e)
		case models.EffectClose:
			stats.Closes++
			open, ok := opens.pop(k)
			if !ok {
				stats.UnmatchedCloses++
				continue
			}
			trips = append(trips, newRoundTrip(open, e))
			stats.Matched++
		default:
			stats.Ignored++
		}
	}

	stats.UnmatchedOpens = opens.len()
	return trips, stats
}

func newRoundTrip(opening, closing models.Execution) models.RoundTrip {
	qty := decimal.NewFromInt(int64(opening.Qty))
	return models.RoundTrip{
		Symbol: closing.Symbol,
		Strike: closing.Strike,
		Expiry: closing.Expiry,
		Qty:    opening.Qty,

		OpenTime:  opening.Time,
		CloseTime: closing.Time,

		OpenPrice:  opening.Price.Mul(hundred).InexactFloat64(),
		ClosePrice: closing.Price.Mul(hundred).InexactFloat64(),
		OpenSpot:   opening.Spot,
		CloseSpot:  closing.Spot,
		OpenIV:     scale100(opening.IV),
		CloseIV:    scale100(closing.IV),

		OpenGreeks:  opening.Greeks,
		CloseGreeks: closing.Greeks,

		PL: closing.Price.Sub(opening.Price).Mul(hundred).Mul(qty).InexactFloat64(),
	}
}

// scale100 multiplies by 100 through decimal so 0.32 becomes exactly 32.
// Non-finite values pass through for validation to reject.
func scale100(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f * 100
	}
	return decimal.NewFromFloat(f).Mul(hundred).InexactFloat64()
}
