package store

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/models"
)

// DTGLayout is the wall-clock layout accepted for execution times.
const DTGLayout = "2006-01-02 15:04:05"

// executionRow is one line of an execution export.
type executionRow struct {
	Symbol string  `csv:"symbol"`
	Strike float64 `csv:"strike"`
	Expiry string  `csv:"expiry"`
	Qty    int     `csv:"qty"`
	Effect string  `csv:"effect"`
	DTG    string  `csv:"dtg"`
	Price  string  `csv:"price"`
	Spot   float64 `csv:"spot"`
	IV     float64 `csv:"iv"`
	Delta  float64 `csv:"delta"`
	Theta  float64 `csv:"theta"`
	Vega   float64 `csv:"vega"`
	Gamma  float64 `csv:"gamma"`
}

// roundTripRow is one line of a round-trip export.
type roundTripRow struct {
	Symbol     string  `csv:"symbol"`
	Strike     float64 `csv:"strike"`
	Expiry     string  `csv:"expiry"`
	Qty        int     `csv:"qty"`
	OpenTime   string  `csv:"open_dtg"`
	CloseTime  string  `csv:"close_dtg"`
	OpenPrice  float64 `csv:"open_price"`
	ClosePrice float64 `csv:"close_price"`
	PL         float64 `csv:"pl"`
	DPnL       float64 `csv:"dpnl"`
	DeltaPL    float64 `csv:"delta_pl"`
	ThetaPL    float64 `csv:"theta_pl"`
	VegaPL     float64 `csv:"vega_pl"`
	GammaPL    float64 `csv:"gamma_pl"`
	Residual   float64 `csv:"residual"`
}

// ParseDTG parses an execution time given as wall clock in loc or RFC 3339.
func ParseDTG(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DTGLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	}
	return t.In(loc), nil
}

// ReadExecutionsCSV parses executions from CSV with a header row. Wall-clock
// times are interpreted in loc. Errors name the offending line.
func ReadExecutionsCSV(r io.Reader, loc *time.Location) ([]models.Execution, error) {
	if loc == nil {
		loc = time.Local
	}

	var rows []*executionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.NewImportError("", 0, err)
	}

	executions := make([]models.Execution, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		at, err := ParseDTG(row.DTG, loc)
		if err != nil {
			return nil, apperrors.NewImportError("", line, apperrors.NewFieldError(apperrors.ErrInvalidExecution, "dtg", row.DTG, err.Error()))
		}
		price, err := decimal.NewFromString(strings.TrimSpace(row.Price))
		if err != nil {
			return nil, apperrors.NewImportError("", line, apperrors.NewFieldError(apperrors.ErrInvalidExecution, "price", row.Price, "not a number"))
		}

		e := models.NewExecution(
			strings.TrimSpace(row.Symbol), row.Strike, strings.TrimSpace(row.Expiry), row.Qty,
			row.Effect, at, price, row.Spot, row.IV,
			models.OptionGreeks{Delta: row.Delta, Theta: row.Theta, Vega: row.Vega, Gamma: row.Gamma},
		)
		if err := e.Validate(); err != nil {
			return nil, apperrors.NewImportError("", line, err)
		}
		executions = append(executions, e)
	}
	return executions, nil
}

// WriteRoundTripsCSV writes round trips with their decomposition as CSV.
func WriteRoundTripsCSV(w io.Writer, trips []models.RoundTrip, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]*roundTripRow, 0, len(trips))
	for _, rt := range trips {
		rows = append(rows, &roundTripRow{
			Symbol:     rt.Symbol,
			Strike:     rt.Strike,
			Expiry:     rt.Expiry,
			Qty:        rt.Qty,
			OpenTime:   rt.OpenTime.In(loc).Format(DTGLayout),
			CloseTime:  rt.CloseTime.In(loc).Format(DTGLayout),
			OpenPrice:  rt.OpenPrice,
			ClosePrice: rt.ClosePrice,
			PL:         rt.PL,
			DPnL:       rt.DPnL,
			DeltaPL:    rt.DeltaPL,
			ThetaPL:    rt.ThetaPL,
			VegaPL:     rt.VegaPL,
			GammaPL:    rt.GammaPL,
			Residual:   rt.Residual,
		})
	}
	return gocsv.Marshal(rows, w)
}
