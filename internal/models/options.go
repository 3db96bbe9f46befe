package models

import "strings"

// OptionRight is the option type of a contract.
type OptionRight string

const (
	RightCall OptionRight = "CALL"
	RightPut  OptionRight = "PUT"
)

// ClassifyRight derives the option right from a symbol. Any symbol that
// contains "call" in any case is a call; everything else is a put.
func ClassifyRight(symbol string) OptionRight {
	if strings.Contains(strings.ToLower(symbol), "call") {
		return RightCall
	}
	return RightPut
}

// OptionGreeks represents per-contract option Greeks sampled at execution.
type OptionGreeks struct {
	Delta float64 `json:"delta" yaml:"delta"`
	Theta float64 `json:"theta" yaml:"theta"`
	Vega  float64 `json:"vega" yaml:"vega"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

// Mean returns the field-wise average of g and o.
func (g OptionGreeks) Mean(o OptionGreeks) OptionGreeks {
	return OptionGreeks{
		Delta: (g.Delta + o.Delta) / 2,
		Theta: (g.Theta + o.Theta) / 2,
		Vega:  (g.Vega + o.Vega) / 2,
		Gamma: (g.Gamma + o.Gamma) / 2,
	}
}

// fields lists the Greeks by name for validation.
func (g OptionGreeks) fields() []namedValue {
	return []namedValue{
		{"delta", g.Delta},
		{"theta", g.Theta},
		{"vega", g.Vega},
		{"gamma", g.Gamma},
	}
}

type namedValue struct {
	name  string
	value float64
}
