// Package models provides domain models for the P&L attribution journal.
package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	apperrors "pnl-attribution/internal/errors"
)

// Effect classifies what an execution does to a position.
type Effect int

const (
	EffectOther Effect = iota
	EffectOpen
	EffectClose
)

// String returns the effect name.
func (e Effect) String() string {
	switch e {
	case EffectOpen:
		return "OPEN"
	case EffectClose:
		return "CLOSE"
	default:
		return "OTHER"
	}
}

// ClassifyEffect maps a raw position-effect string to an Effect using a
// case-insensitive substring match. "open" is checked before "close", so a
// value containing both is an open.
func ClassifyEffect(raw string) Effect {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "open"):
		return EffectOpen
	case strings.Contains(s, "close"):
		return EffectClose
	default:
		return EffectOther
	}
}

// Execution is one raw option trade execution (a fill).
type Execution struct {
	ID        string          `json:"id,omitempty" yaml:"id,omitempty"`
	Symbol    string          `json:"symbol" yaml:"symbol"`
	Strike    float64         `json:"strike" yaml:"strike"`
	Expiry    string          `json:"expiry" yaml:"expiry"`
	Qty       int             `json:"qty" yaml:"qty"`
	RawEffect string          `json:"effect" yaml:"effect"`
	Effect    Effect          `json:"-" yaml:"-"`
	Time      time.Time       `json:"dtg" yaml:"dtg"`
	Price     decimal.Decimal `json:"price" yaml:"price"`
	Spot      float64         `json:"spot" yaml:"spot"`
	IV        float64         `json:"iv" yaml:"iv"`
	Greeks    OptionGreeks    `json:"greeks" yaml:"greeks"`
}

// NewExecution builds an Execution and classifies its effect.
func NewExecution(symbol string, strike float64, expiry string, qty int, effect string, at time.Time, price decimal.Decimal, spot, iv float64, greeks OptionGreeks) Execution {
	return Execution{
		Symbol:    symbol,
		Strike:    strike,
		Expiry:    expiry,
		Qty:       qty,
		RawEffect: effect,
		Effect:    ClassifyEffect(effect),
		Time:      at,
		Price:     price,
		Spot:      spot,
		IV:        iv,
		Greeks:    greeks,
	}
}

// PositionEffect returns Effect, classifying RawEffect when Effect was never
// set, as for an Execution built as a literal.
func (e Execution) PositionEffect() Effect {
	if e.Effect == EffectOther && e.RawEffect != "" {
		return ClassifyEffect(e.RawEffect)
	}
	return e.Effect
}

// UnmarshalJSON decodes an execution and classifies its effect.
func (e *Execution) UnmarshalJSON(data []byte) error {
	type plain Execution
	if err := json.Unmarshal(data, (*plain)(e)); err != nil {
		return err
	}
	e.Effect = ClassifyEffect(e.RawEffect)
	return nil
}

// UnmarshalYAML decodes an execution and classifies its effect.
func (e *Execution) UnmarshalYAML(value *yaml.Node) error {
	type plain Execution
	if err := value.Decode((*plain)(e)); err != nil {
		return err
	}
	e.Effect = ClassifyEffect(e.RawEffect)
	return nil
}

// Right returns the option right implied by the symbol.
func (e Execution) Right() OptionRight {
	return ClassifyRight(e.Symbol)
}

// Validate checks that the execution carries usable identity and numeric fields.
func (e Execution) Validate() error {
	if strings.TrimSpace(e.Symbol) == "" {
		return apperrors.NewFieldError(apperrors.ErrInvalidExecution, "symbol", e.Symbol, "symbol cannot be empty")
	}
	if e.Time.IsZero() {
		return apperrors.NewFieldError(apperrors.ErrInvalidExecution, "dtg", e.Time, "execution time is required")
	}
	if !isFinite(e.Strike) {
		return apperrors.NewFieldError(apperrors.ErrInvalidExecution, "strike", e.Strike, "must be a finite number")
	}
	values := append([]namedValue{{"spot", e.Spot}, {"iv", e.IV}}, e.Greeks.fields()...)
	for _, v := range values {
		if !isFinite(v.value) {
			return apperrors.NewFieldError(apperrors.ErrInvalidExecution, v.name, v.value, "must be a finite number")
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
