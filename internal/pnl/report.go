package pnl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pnl-attribution/internal/models"
)

// Analyzer turns one day of executions into a DayReport.
type Analyzer struct {
	Decomposer Decomposer
	Session    Session
	Logger     zerolog.Logger
}

// NewAnalyzer creates an Analyzer with the default session and model.
func NewAnalyzer(logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		Decomposer: OpenGreeks{},
		Session:    DefaultSession,
		Logger:     logger,
	}
}

// Analyze validates executions, matches them into round trips, attributes
// their P&L and builds the equity curve and return histogram. executions must
// belong to day and be ordered by time.
func (a *Analyzer) Analyze(ctx context.Context, day time.Time, executions []models.Execution) (*models.DayReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, e := range executions {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("execution %d (%s): %w", i, e.Symbol, err)
		}
	}

	decomposer := a.Decomposer
	if decomposer == nil {
		decomposer = OpenGreeks{}
	}

	matched, stats := MatchWithStats(executions)
	trips, err := DecomposeAll(matched, decomposer)
	if err != nil {
		return nil, err
	}

	a.Logger.Debug().
		Int("opens", stats.Opens).
		Int("closes", stats.Closes).
		Int("matched", stats.Matched).
		Int("unmatched_closes", stats.UnmatchedCloses).
		Int("unmatched_opens", stats.UnmatchedOpens).
		Int("ignored", stats.Ignored).
		Str("model", decomposer.Name()).
		Msg("Matched executions")

	return &models.DayReport{
		Date:         day,
		SessionOpen:  a.Session.Start(day),
		SessionClose: a.Session.End(day),
		Executions:   executions,
		RoundTrips:   trips,
		Equity:       a.Session.EquityCurve(trips),
		Histogram:    BuildHistogram(trips),
		Match:        stats,
		Summary:      Summarize(trips),
	}, nil
}

// Summarize totals a day's round trips. A trip with positive DPnL is a win
// and one with negative DPnL a loss; flat trips count as neither.
func Summarize(trips []models.RoundTrip) models.DaySummary {
	var s models.DaySummary
	for _, rt := range trips {
		s.Trades++
		if rt.DPnL > 0 {
			s.Wins++
		} else if rt.DPnL < 0 {
			s.Losses++
		}
		s.TotalPL += rt.PL
		s.DPnL += rt.DPnL
		s.DeltaPL += rt.DeltaPL
		s.ThetaPL += rt.ThetaPL
		s.VegaPL += rt.VegaPL
		s.GammaPL += rt.GammaPL
		s.Residual += rt.Residual
	}
	return s
}
