package models

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "pnl-attribution/internal/errors"
)

// Decomposition attributes a round trip's realized P&L to Greek contributions.
type Decomposition struct {
	DPnL     float64 `json:"dPnL" yaml:"dPnL"`
	DeltaPL  float64 `json:"deltaPL" yaml:"deltaPL"`
	ThetaPL  float64 `json:"thetaPL" yaml:"thetaPL"`
	VegaPL   float64 `json:"vegaPL" yaml:"vegaPL"`
	GammaPL  float64 `json:"gammaPL" yaml:"gammaPL"`
	Residual float64 `json:"residual" yaml:"residual"`
}

// Explained returns the part of DPnL covered by the Greek terms.
func (d Decomposition) Explained() float64 {
	return d.DeltaPL + d.ThetaPL + d.VegaPL + d.GammaPL
}

// RoundTrip is a completed position: one opening execution matched with one
// closing execution. Prices and IVs are stored scaled by 100.
type RoundTrip struct {
	Symbol string  `json:"symbol" yaml:"symbol"`
	Strike float64 `json:"strike" yaml:"strike"`
	Expiry string  `json:"expiry" yaml:"expiry"`
	Qty    int     `json:"qty" yaml:"qty"`

	OpenTime  time.Time `json:"open_dtg" yaml:"open_dtg"`
	CloseTime time.Time `json:"close_dtg" yaml:"close_dtg"`

	OpenPrice  float64 `json:"open_price" yaml:"open_price"`
	ClosePrice float64 `json:"close_price" yaml:"close_price"`
	OpenSpot   float64 `json:"open_spot" yaml:"open_spot"`
	CloseSpot  float64 `json:"close_spot" yaml:"close_spot"`
	OpenIV     float64 `json:"open_iv" yaml:"open_iv"`
	CloseIV    float64 `json:"close_iv" yaml:"close_iv"`

	OpenGreeks  OptionGreeks `json:"open_greeks" yaml:"open_greeks"`
	CloseGreeks OptionGreeks `json:"close_greeks" yaml:"close_greeks"`

	// PL is computed from unscaled prices: (close - open) * 100 * qty.
	PL float64 `json:"pl" yaml:"pl"`

	Decomposition `yaml:",inline"`
}

// Return is the percentage return of the round trip.
func (rt RoundTrip) Return() float64 {
	return (rt.ClosePrice - rt.OpenPrice) / rt.OpenPrice * 100
}

// Hold is the time the position was open.
func (rt RoundTrip) Hold() time.Duration {
	return rt.CloseTime.Sub(rt.OpenTime)
}

// Validate checks every numeric field the decomposition reads.
func (rt RoundTrip) Validate() error {
	if rt.OpenTime.IsZero() || rt.CloseTime.IsZero() {
		return apperrors.NewFieldError(apperrors.ErrInvalidRoundTrip, "dtg", rt.Symbol, "open and close times are required")
	}
	values := []namedValue{
		{"open_price", rt.OpenPrice},
		{"close_price", rt.ClosePrice},
		{"open_spot", rt.OpenSpot},
		{"close_spot", rt.CloseSpot},
		{"open_iv", rt.OpenIV},
		{"close_iv", rt.CloseIV},
	}
	for _, g := range rt.OpenGreeks.fields() {
		values = append(values, namedValue{"open_" + g.name, g.value})
	}
	for _, g := range rt.CloseGreeks.fields() {
		values = append(values, namedValue{"close_" + g.name, g.value})
	}
	for _, v := range values {
		if !isFinite(v.value) {
			return apperrors.NewFieldError(apperrors.ErrInvalidRoundTrip, v.name, v.value, "must be a finite number")
		}
	}
	return nil
}

// EquityPoint is one point of the cumulative intraday equity curve.
type EquityPoint struct {
	TimestampMs int64
	Value       float64
}

// Time returns the point's timestamp in loc.
func (p EquityPoint) Time(loc *time.Location) time.Time {
	return time.UnixMilli(p.TimestampMs).In(loc)
}

// MarshalJSON encodes the point as a [timestamp_ms, value] pair.
func (p EquityPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.TimestampMs, p.Value})
}

// UnmarshalJSON decodes a [timestamp_ms, value] pair.
func (p *EquityPoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("equity point: expected 2 elements, got %d", len(pair))
	}
	p.TimestampMs = int64(pair[0])
	p.Value = pair[1]
	return nil
}

// MarshalYAML encodes the point as a two element sequence.
func (p EquityPoint) MarshalYAML() (interface{}, error) {
	return []interface{}{p.TimestampMs, p.Value}, nil
}

// HistogramBucket is a single labelled bucket.
type HistogramBucket struct {
	Label string
	Count int
}

// Histogram is a binned count of per-trade percentage returns.
type Histogram struct {
	Labels []string `json:"labels" yaml:"labels"`
	Counts []int    `json:"counts" yaml:"counts"`
}

// Buckets pairs labels with counts.
func (h Histogram) Buckets() []HistogramBucket {
	buckets := make([]HistogramBucket, len(h.Labels))
	for i, label := range h.Labels {
		buckets[i] = HistogramBucket{Label: label}
		if i < len(h.Counts) {
			buckets[i].Count = h.Counts[i]
		}
	}
	return buckets
}

// Total returns the sum of all counts.
func (h Histogram) Total() int {
	total := 0
	for _, c := range h.Counts {
		total += c
	}
	return total
}

// Class returns the legend letter for bucket i (A, B, C...).
func Class(i int) string {
	return string(rune('A' + i))
}
