package pnl

import (
	"fmt"
	"strings"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/models"
)

const secondsPerDay = 86400.0

// Attribution model names accepted by ParseModel.
const (
	ModelOpenGreeks    = "open_greeks"
	ModelAverageGreeks = "average_greeks"
)

// Decomposer attributes a round trip's realized P&L to Greek contributions.
type Decomposer interface {
	Decompose(rt models.RoundTrip) (models.Decomposition, error)
	Name() string
}

// OpenGreeks is a static Taylor expansion using the Greeks sampled on the
// opening leg only.
type OpenGreeks struct{}

// Name implements Decomposer.
func (OpenGreeks) Name() string { return ModelOpenGreeks }

// Decompose implements Decomposer.
func (OpenGreeks) Decompose(rt models.RoundTrip) (models.Decomposition, error) {
	if err := rt.Validate(); err != nil {
		return models.Decomposition{}, err
	}
	return taylor(rt, rt.OpenGreeks), nil
}

// AverageGreeks uses the mean of the open and close Greeks.
type AverageGreeks struct{}

// Name implements Decomposer.
func (AverageGreeks) Name() string { return ModelAverageGreeks }

// Decompose implements Decomposer.
func (AverageGreeks) Decompose(rt models.RoundTrip) (models.Decomposition, error) {
	if err := rt.Validate(); err != nil {
		return models.Decomposition{}, err
	}
	return taylor(rt, rt.OpenGreeks.Mean(rt.CloseGreeks)), nil
}

// taylor applies the first and second order expansion with the given Greeks.
// dPnL uses the scaled prices times qty with no extra factor of 100, unlike
// RoundTrip.PL.
func taylor(rt models.RoundTrip, g models.OptionGreeks) models.Decomposition {
	qty := float64(rt.Qty)
	dSpot := rt.CloseSpot - rt.OpenSpot
	dSigma := rt.CloseIV - rt.OpenIV
	dt := rt.Hold().Seconds() / secondsPerDay

	d := models.Decomposition{
		DPnL:    (rt.ClosePrice - rt.OpenPrice) * qty,
		DeltaPL: g.Delta * dSpot * 100 * qty,
		ThetaPL: g.Theta * dt * 100 * qty,
		VegaPL:  g.Vega * dSigma * 100 * qty,
		GammaPL: 0.5 * g.Gamma * dSpot * dSpot * 100 * qty,
	}
	d.Residual = d.DPnL - d.Explained()
	return d
}

// ParseModel returns the Decomposer registered under name. An empty name
// selects OpenGreeks.
func ParseModel(name string) (Decomposer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ModelOpenGreeks:
		return OpenGreeks{}, nil
	case ModelAverageGreeks:
		return AverageGreeks{}, nil
	default:
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown attribution model %q", name)
	}
}

// Decompose runs the default model on a single round trip.
func Decompose(rt models.RoundTrip) (models.Decomposition, error) {
	return OpenGreeks{}.Decompose(rt)
}

// DecomposeAll returns copies of trips enriched with d's attribution. It stops
// at the first round trip that fails validation.
func DecomposeAll(trips []models.RoundTrip, d Decomposer) ([]models.RoundTrip, error) {
	if d == nil {
		d = OpenGreeks{}
	}
	out := make([]models.RoundTrip, len(trips))
	for i, rt := range trips {
		attr, err := d.Decompose(rt)
		if err != nil {
			return nil, fmt.Errorf("round trip %d (%s %s): %w", i, rt.Symbol, rt.OpenTime.Format("15:04:05"), err)
		}
		rt.Decomposition = attr
		out[i] = rt
	}
	return out, nil
}
