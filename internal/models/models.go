package models

import "time"

// MatchStats counts what the position matcher did with a day's executions.
type MatchStats struct {
	Opens           int `json:"opens" yaml:"opens"`
	Closes          int `json:"closes" yaml:"closes"`
	Ignored         int `json:"ignored" yaml:"ignored"`
	Matched         int `json:"matched" yaml:"matched"`
	UnmatchedCloses int `json:"unmatched_closes" yaml:"unmatched_closes"`
	UnmatchedOpens  int `json:"unmatched_opens" yaml:"unmatched_opens"`
}

// DaySummary aggregates a day's round trips.
type DaySummary struct {
	Trades  int     `json:"trades" yaml:"trades"`
	Wins    int     `json:"wins" yaml:"wins"`
	Losses  int     `json:"losses" yaml:"losses"`
	TotalPL float64 `json:"total_pl" yaml:"total_pl"`

	Decomposition `yaml:",inline"`
}

// WinRate returns the share of winning round trips in percent.
func (s DaySummary) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}

// DayReport is everything derived from one calendar day of executions.
type DayReport struct {
	Date         time.Time     `json:"date" yaml:"date"`
	SessionOpen  time.Time     `json:"session_open" yaml:"session_open"`
	SessionClose time.Time     `json:"session_close" yaml:"session_close"`
	Executions   []Execution   `json:"-" yaml:"-"`
	RoundTrips   []RoundTrip   `json:"round_trips" yaml:"round_trips"`
	Equity       []EquityPoint `json:"equity_series" yaml:"equity_series"`
	Histogram    Histogram     `json:"return_histogram" yaml:"return_histogram"`
	Match        MatchStats    `json:"match" yaml:"match"`
	Summary      DaySummary    `json:"summary" yaml:"summary"`
}
