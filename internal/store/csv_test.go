package store

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/models"
)

const csvHeader = "symbol,strike,expiry,qty,effect,dtg,price,spot,iv,delta,theta,vega,gamma\n"

func TestReadExecutionsCSV(t *testing.T) {
	in := csvHeader +
		"SPY Call,500,2025-03-21,2,Opening,2025-03-14 10:00:00,1.50,560,0.30,0.5,-0.1,0.2,0.05\n" +
		"SPY Call,500,2025-03-21,2,Sell To Close,2025-03-14T11:00:00-04:00,2.5,561,0.32,0.55,-0.12,0.21,0.06\n"

	execs, err := ReadExecutionsCSV(strings.NewReader(in), nyc)
	require.NoError(t, err)
	require.Len(t, execs, 2)

	open := execs[0]
	assert.Equal(t, "SPY Call", open.Symbol)
	assert.Equal(t, models.EffectOpen, open.Effect)
	assert.Equal(t, models.RightCall, open.Right())
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, nyc), open.Time)
	assert.Equal(t, "1.5", open.Price.String())
	assert.Equal(t, models.OptionGreeks{Delta: 0.5, Theta: -0.1, Vega: 0.2, Gamma: 0.05}, open.Greeks)

	assert.Equal(t, models.EffectClose, execs[1].Effect)
	assert.True(t, execs[1].Time.Equal(time.Date(2025, 3, 14, 11, 0, 0, 0, nyc)))
}

func TestReadExecutionsCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		line  int
		field string
	}{
		{"bad time", "SPY Call,500,2025-03-21,1,Opening,yesterday,1,560,0.3,0.5,-0.1,0.2,0.05", 2, "dtg"},
		{"bad price", "SPY Call,500,2025-03-21,1,Opening,2025-03-14 10:00:00,abc,560,0.3,0.5,-0.1,0.2,0.05", 2, "price"},
		{"nan greek", "SPY Call,500,2025-03-21,1,Opening,2025-03-14 10:00:00,1,560,0.3,NaN,-0.1,0.2,0.05", 2, "delta"},
		{"empty symbol", " ,500,2025-03-21,1,Opening,2025-03-14 10:00:00,1,560,0.3,0.5,-0.1,0.2,0.05", 2, "symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadExecutionsCSV(strings.NewReader(csvHeader+tt.row+"\n"), nyc)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrImportFailed))
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidExecution))

			var ie *apperrors.ImportError
			require.True(t, apperrors.As(err, &ie))
			assert.Equal(t, tt.line, ie.Line)

			var ve *apperrors.ValidationError
			require.True(t, apperrors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestReadExecutionsCSVLineNumbers(t *testing.T) {
	in := csvHeader +
		"SPY Call,500,2025-03-21,1,Opening,2025-03-14 10:00:00,1,560,0.3,0.5,-0.1,0.2,0.05\n" +
		"SPY Call,500,2025-03-21,1,Sell To Close,2025-03-14 10:05:00,x,560,0.3,0.5,-0.1,0.2,0.05\n"

	_, err := ReadExecutionsCSV(strings.NewReader(in), nyc)
	var ie *apperrors.ImportError
	require.True(t, apperrors.As(err, &ie))
	assert.Equal(t, 3, ie.Line)
}

func TestParseDTG(t *testing.T) {
	got, err := ParseDTG(" 2025-03-14 09:30:00 ", nyc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, nyc), got)

	got, err = ParseDTG("2025-03-14T13:30:00Z", nyc)
	require.NoError(t, err)
	assert.Equal(t, nyc, got.Location())
	assert.Equal(t, 9, got.Hour())

	_, err = ParseDTG("14/03/2025", nyc)
	assert.Error(t, err)
}

func TestWriteRoundTripsCSV(t *testing.T) {
	rt := models.RoundTrip{
		Symbol:     "SPY Call",
		Strike:     500,
		Expiry:     "2025-03-21",
		Qty:        2,
		OpenTime:   time.Date(2025, 3, 14, 10, 0, 0, 0, nyc),
		CloseTime:  time.Date(2025, 3, 14, 11, 0, 0, 0, nyc),
		OpenPrice:  150,
		ClosePrice: 250,
		PL:         200,
	}
	rt.DPnL = 200
	rt.Residual = 7.5

	var buf bytes.Buffer
	require.NoError(t, WriteRoundTripsCSV(&buf, []models.RoundTrip{rt}, nyc))

	var rows []*roundTripRow
	require.NoError(t, gocsv.Unmarshal(strings.NewReader(buf.String()), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "SPY Call", rows[0].Symbol)
	assert.Equal(t, "2025-03-14 10:00:00", rows[0].OpenTime)
	assert.Equal(t, 200.0, rows[0].DPnL)
	assert.Equal(t, 7.5, rows[0].Residual)
	assert.True(t, strings.HasPrefix(buf.String(), "symbol,strike,expiry,qty,open_dtg,close_dtg"))
}
