package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/logging"
	"pnl-attribution/internal/models"
	"pnl-attribution/internal/pnl"
	"pnl-attribution/internal/store"
)

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseReportDate parses a YYYY-MM-DD day in loc. An empty string means
// today in loc.
func ParseReportDate(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc), nil
	}
	if !datePattern.MatchString(s) {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrInvalidDate, "date %q (want YYYY-MM-DD)", s)
	}
	day, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrInvalidDate, "date %q (%v)", s, err)
	}
	return day, nil
}

// reportDocument is the structured form of a day report.
type reportDocument struct {
	Date            string               `json:"date" yaml:"date"`
	Model           string               `json:"model" yaml:"model"`
	EquitySeries    []models.EquityPoint `json:"equity_series" yaml:"equity_series"`
	ReturnHistogram models.Histogram     `json:"return_histogram" yaml:"return_histogram"`
	RoundTrips      []models.RoundTrip   `json:"round_trips" yaml:"round_trips"`
	Summary         models.DaySummary    `json:"summary" yaml:"summary"`
	Match           models.MatchStats    `json:"match" yaml:"match"`
}

func newReportDocument(r *models.DayReport, model string) reportDocument {
	return reportDocument{
		Date:            r.Date.Format(dateLayout),
		Model:           model,
		EquitySeries:    r.Equity,
		ReturnHistogram: r.Histogram,
		RoundTrips:      r.RoundTrips,
		Summary:         r.Summary,
		Match:           r.Match,
	}
}

func newReportCmd(app *App) *cobra.Command {
	var (
		model        string
		transactions bool
		csvOut       bool
	)

	cmd := &cobra.Command{
		Use:   "report [YYYY-MM-DD]",
		Short: "Attribute a day's realized P&L",
		Long: `Match a day's executions into round trips and attribute each round trip's
P&L to delta, theta, vega and gamma. The day defaults to today in the
configured session timezone.`,
		Example: `  pnl report
  pnl report 2025-03-14 --transactions
  pnl report 2025-03-14 --model average_greeks --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			loc := app.Config.Location()
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			day, err := ParseReportDate(arg, loc, time.Now())
			if err != nil {
				return err
			}

			if model == "" {
				model = app.Config.Attribution.Model
			}
			decomposer, err := pnl.ParseModel(model)
			if err != nil {
				return err
			}

			logger := logging.WithDate(logging.WithOperation(app.Logger, "report"), day)
			ctx = logging.WithLogger(ctx, logger)

			s, err := app.openStore()
			if err != nil {
				return err
			}
			executions, err := s.GetExecutionsForDay(ctx, day)
			if err != nil {
				return fmt.Errorf("loading executions for %s: %w", day.Format(dateLayout), err)
			}

			analyzer := pnl.NewAnalyzer(logger)
			analyzer.Decomposer = decomposer
			analyzer.Session = app.Config.TradingSession()

			report, err := analyzer.Analyze(ctx, day, executions)
			if err != nil {
				return err
			}
			logging.LogDayReport(logger, day, len(executions), len(report.RoundTrips), report.Summary.DPnL)

			switch {
			case csvOut:
				return store.WriteRoundTripsCSV(cmd.OutOrStdout(), report.RoundTrips, loc)
			case output.IsStructured():
				return output.Encode(newReportDocument(report, decomposer.Name()))
			}

			renderReport(output, report, decomposer.Name(), loc, transactions)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "attribution model: open_greeks, average_greeks (default from config)")
	cmd.Flags().BoolVar(&transactions, "transactions", false, "also list the day's raw executions")
	cmd.Flags().BoolVar(&csvOut, "csv", false, "write round trips as CSV")

	return cmd
}

func renderReport(output *Output, r *models.DayReport, model string, loc *time.Location, transactions bool) {
	output.Bold("P&L Attribution - %s", r.Date.Format("Mon 02 Jan 2006"))
	output.Dim("Model: %s  Session: %s-%s %s", model,
		r.SessionOpen.Format("15:04"), r.SessionClose.Format("15:04"), loc)
	output.Println()

	if len(r.Executions) == 0 {
		output.Info("No executions recorded for %s.", r.Date.Format(dateLayout))
		output.Println()
		output.Dim("Tip: load executions with 'pnl import <file.csv>'.")
		return
	}

	if transactions {
		renderTransactions(output, r.Executions, loc)
		output.Println()
	}

	if len(r.RoundTrips) == 0 {
		output.Info("No completed round trips.")
	} else {
		renderRoundTrips(output, r.RoundTrips, loc)
		output.Println()
		renderHistogram(output, r.Histogram)
		output.Println()
		renderEquity(output, r.Equity, loc)
	}
	output.Println()
	renderSummary(output, r.Summary, r.Match)
}

func renderTransactions(output *Output, executions []models.Execution, loc *time.Location) {
	output.Bold("Transactions")
	table := NewTable(output, "Time", "Symbol", "Strike", "Expiry", "Qty", "Effect", "Price", "Spot", "IV", "Greeks")
	for _, e := range executions {
		table.AddRow(
			FormatClock(e.Time, loc),
			TruncateString(e.Symbol, 24),
			FormatStrike(e.Strike),
			e.Expiry,
			fmt.Sprintf("%d", e.Qty),
			e.Effect.String(),
			e.Price.StringFixed(2),
			FormatPrice(e.Spot),
			FormatIV(e.IV),
			FormatGreeks(e.Greeks.Delta, e.Greeks.Gamma, e.Greeks.Theta, e.Greeks.Vega),
		)
	}
	table.Render()
}

func renderRoundTrips(output *Output, trips []models.RoundTrip, loc *time.Location) {
	output.Bold("Round Trips")
	table := NewTable(output,
		"Symbol", "Strike", "Expiry", "Qty", "Open", "Close", "Held",
		"Open Px", "Close Px", "Return", "Total P&L", "Delta", "Theta", "Vega", "Gamma", "Residual")
	for _, rt := range trips {
		table.AddRow(
			TruncateString(rt.Symbol, 24),
			FormatStrike(rt.Strike),
			rt.Expiry,
			fmt.Sprintf("%d", rt.Qty),
			FormatClock(rt.OpenTime, loc),
			FormatClock(rt.CloseTime, loc),
			FormatDuration(rt.Hold()),
			FormatPrice(rt.OpenPrice/100),
			FormatPrice(rt.ClosePrice/100),
			output.FormatPercent(rt.Return()),
			output.FormatPnL(rt.DPnL),
			output.FormatAmount(rt.DeltaPL),
			output.FormatAmount(rt.ThetaPL),
			output.FormatAmount(rt.VegaPL),
			output.FormatAmount(rt.GammaPL),
			output.FormatAmount(rt.Residual),
		)
	}
	table.Render()
}

func renderHistogram(output *Output, h models.Histogram) {
	output.Bold("Return Distribution")
	table := NewTable(output, "Class", "Range", "Trades", "")
	for i, b := range h.Buckets() {
		table.AddRow(models.Class(i), b.Label, fmt.Sprintf("%d", b.Count), strings.Repeat("█", b.Count))
	}
	table.Render()
}

func renderEquity(output *Output, points []models.EquityPoint, loc *time.Location) {
	output.Bold("Equity Curve")
	table := NewTable(output, "Time", "Equity")
	for _, p := range points {
		table.AddRow(FormatClock(p.Time(loc), loc), output.FormatPnL(p.Value))
	}
	table.Render()
}

func renderSummary(output *Output, s models.DaySummary, m models.MatchStats) {
	output.Bold("Summary")
	output.Printf("  Round Trips:  %d\n", s.Trades)
	output.Printf("  Wins/Losses:  %d/%d (%.0f%% win rate)\n", s.Wins, s.Losses, s.WinRate())
	output.Printf("  Realized P&L: %s\n", output.FormatPnL(s.TotalPL))
	output.Printf("  Attributed:   delta %s  theta %s  vega %s  gamma %s  residual %s\n",
		output.FormatAmount(s.DeltaPL), output.FormatAmount(s.ThetaPL),
		output.FormatAmount(s.VegaPL), output.FormatAmount(s.GammaPL),
		output.FormatAmount(s.Residual))

	if m.UnmatchedCloses > 0 {
		output.Warning("  %d closing execution(s) had no open position", m.UnmatchedCloses)
	}
	if m.UnmatchedOpens > 0 {
		output.Dim("  %d position(s) still open at end of day", m.UnmatchedOpens)
	}
	if m.Ignored > 0 {
		output.Dim("  %d execution(s) without an open/close effect ignored", m.Ignored)
	}
}
