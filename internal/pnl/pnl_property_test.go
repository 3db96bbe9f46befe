package pnl

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"pnl-attribution/internal/models"
)

// executionsFromCodes turns generated codes into a time-ordered day of
// executions over three contracts. code%3 picks the contract, (code/3)%4
// picks the effect: two open codes, one close, one other.
func executionsFromCodes(codes []int) []models.Execution {
	contracts := []struct {
		symbol string
		strike float64
		qty    int
	}{
		{"SPY Call", 500, 1},
		{"SPY Put", 495, 1},
		{"SPY Call", 500, 2},
	}
	effects := []string{"BUY_TO_OPEN", "SELL_TO_OPEN", "BUY_TO_CLOSE", "EXPIRED"}

	execs := make([]models.Execution, 0, len(codes))
	for i, code := range codes {
		c := contracts[code%3]
		p := price(fmt.Sprintf("%d.%02d", 1+i%3, (i*37)%100))
		execs = append(execs, models.NewExecution(c.symbol, c.strike, "2025-03-21", c.qty, effects[(code/3)%4],
			at(9, 31, 0).Add(time.Duration(i)*time.Minute), p, 500+float64(i%7), 0.2+float64(i%5)/100,
			models.OptionGreeks{Delta: 0.4, Theta: -0.05, Vega: 0.1, Gamma: 0.02}))
	}
	return execs
}

func codesGen() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 11))
}

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return gopter.NewProperties(parameters)
}

// Property: every round trip carries its open leg's quantity, and per key
// the number of round trips never exceeds min(opens, closes).
func TestProperty_MatchCounts(t *testing.T) {
	properties := newProperties()

	properties.Property("round trips bounded by opens and closes per key", prop.ForAll(
		func(codes []int) bool {
			execs := executionsFromCodes(codes)
			opens := map[positionKey]int{}
			closes := map[positionKey]int{}
			for _, e := range execs {
				switch e.Effect {
				case models.EffectOpen:
					opens[keyOf(e)]++
				case models.EffectClose:
					closes[keyOf(e)]++
				}
			}

			trips, stats := MatchWithStats(execs)
			perKey := map[positionKey]int{}
			for _, rt := range trips {
				k := positionKey{rt.Symbol, rt.Strike, rt.Expiry, rt.Qty, models.ClassifyRight(rt.Symbol)}
				perKey[k]++
			}
			for k, n := range perKey {
				if n > opens[k] || n > closes[k] {
					t.Logf("key %+v: %d trips, %d opens, %d closes", k, n, opens[k], closes[k])
					return false
				}
			}
			return stats.Matched == len(trips) &&
				stats.Opens == stats.Matched+stats.UnmatchedOpens &&
				stats.Closes == stats.Matched+stats.UnmatchedCloses &&
				stats.Opens+stats.Closes+stats.Ignored == len(execs)
		},
		codesGen(),
	))

	properties.TestingRun(t)
}

// Property: within a key, round trips never cross. The open times of the
// trips emitted for a key increase with their close times.
func TestProperty_FIFONeverCrosses(t *testing.T) {
	properties := newProperties()

	properties.Property("open times increase with close times per key", prop.ForAll(
		func(codes []int) bool {
			lastOpen := map[positionKey]time.Time{}
			for _, rt := range Match(executionsFromCodes(codes)) {
				k := positionKey{rt.Symbol, rt.Strike, rt.Expiry, rt.Qty, models.ClassifyRight(rt.Symbol)}
				if prev, ok := lastOpen[k]; ok && !rt.OpenTime.After(prev) {
					return false
				}
				if !rt.OpenTime.Before(rt.CloseTime) {
					return false
				}
				lastOpen[k] = rt.OpenTime
			}
			return true
		},
		codesGen(),
	))

	properties.TestingRun(t)
}

// Property: residual absorbs everything the Greek terms do not explain.
func TestProperty_DecompositionIdentity(t *testing.T) {
	properties := newProperties()

	properties.Property("dPnL equals Greek terms plus residual", prop.ForAll(
		func(delta, theta, vega, gamma, dSpot, openPrice float64, qty int) bool {
			rt := trip(openPrice, openPrice*1.1, qty, at(11, 0, 0))
			rt.CloseSpot = rt.OpenSpot + dSpot
			rt.CloseIV = rt.OpenIV + 1.5
			rt.OpenGreeks = models.OptionGreeks{Delta: delta, Theta: theta, Vega: vega, Gamma: gamma}

			d, err := Decompose(rt)
			if err != nil {
				return false
			}
			sum := d.DeltaPL + d.ThetaPL + d.VegaPL + d.GammaPL + d.Residual
			return math.Abs(sum-d.DPnL) <= 1e-9*math.Max(1, math.Abs(d.DPnL)+math.Abs(d.Explained()))
		},
		gen.Float64Range(-1, 1),
		gen.Float64Range(-1, 0),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 0.2),
		gen.Float64Range(-20, 20),
		gen.Float64Range(1, 5000),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

// Property: the equity curve ends at the total dPnL, its timestamps never
// decrease, and the histogram assigns every trip exactly once.
func TestProperty_DayArtifacts(t *testing.T) {
	properties := newProperties()

	properties.Property("equity and histogram agree with round trips", prop.ForAll(
		func(codes []int) bool {
			trips, err := DecomposeAll(Match(executionsFromCodes(codes)), OpenGreeks{})
			if err != nil {
				return false
			}

			h := BuildHistogram(trips)
			if h.Total() != len(trips) || len(h.Labels) != 10 {
				return false
			}

			curve := BuildEquityCurve(trips)
			if len(trips) == 0 {
				return len(curve) == 0
			}
			if len(curve) != len(trips)+1 || curve[0].Value != 0 {
				return false
			}
			for i := 1; i < len(curve); i++ {
				if curve[i].TimestampMs < curve[i-1].TimestampMs {
					return false
				}
			}

			var total float64
			for _, rt := range trips {
				total += rt.DPnL
			}
			return math.Abs(curve[len(curve)-1].Value-total) < 1e-6
		},
		codesGen(),
	))

	properties.TestingRun(t)
}
