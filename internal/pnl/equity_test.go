package pnl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnl-attribution/internal/models"
)

func TestEquityCurveEmpty(t *testing.T) {
	curve := BuildEquityCurve(nil)
	assert.NotNil(t, curve)
	assert.Empty(t, curve)
}

func TestEquityCurveAnchorAndRunningSum(t *testing.T) {
	trips := []models.RoundTrip{
		trip(100, 150, 1, at(11, 0, 0)),
		trip(100, 80, 2, at(10, 0, 0)),
		trip(200, 230, 1, at(15, 59, 0)),
	}

	curve := BuildEquityCurve(trips)
	require.Len(t, curve, 4)

	assert.Equal(t, at(9, 30, 0).UnixMilli(), curve[0].TimestampMs)
	assert.Equal(t, 0.0, curve[0].Value)

	assert.Equal(t, at(10, 0, 0).UnixMilli(), curve[1].TimestampMs)
	assert.Equal(t, -40.0, curve[1].Value)
	assert.Equal(t, at(11, 0, 0).UnixMilli(), curve[2].TimestampMs)
	assert.Equal(t, 10.0, curve[2].Value)
	assert.Equal(t, at(15, 59, 0).UnixMilli(), curve[3].TimestampMs)
	assert.Equal(t, 40.0, curve[3].Value)
}

func TestEquityCurveStableTies(t *testing.T) {
	same := at(10, 15, 0)
	trips := []models.RoundTrip{
		trip(100, 110, 1, same),
		trip(100, 70, 1, same),
		trip(100, 105, 1, at(10, 0, 0)),
	}

	curve := BuildEquityCurve(trips)
	require.Len(t, curve, 4)
	assert.Equal(t, 5.0, curve[1].Value)
	assert.Equal(t, 15.0, curve[2].Value)
	assert.Equal(t, -15.0, curve[3].Value)
}

func TestEquityCurveIncludesAfterHours(t *testing.T) {
	trips := []models.RoundTrip{
		trip(100, 120, 1, at(16, 45, 0)),
	}

	curve := BuildEquityCurve(trips)
	require.Len(t, curve, 2)
	assert.Equal(t, at(16, 45, 0).UnixMilli(), curve[1].TimestampMs)
	assert.Equal(t, 20.0, curve[1].Value)
}

func TestEquityCurveDoesNotReorderInput(t *testing.T) {
	trips := []models.RoundTrip{
		trip(100, 150, 1, at(11, 0, 0)),
		trip(100, 80, 1, at(10, 0, 0)),
	}
	_ = BuildEquityCurve(trips)
	assert.Equal(t, at(11, 0, 0), trips[0].CloseTime)
}

func TestEquityCurveCustomSession(t *testing.T) {
	s, err := ParseSession("08:00", "15:15")
	require.NoError(t, err)

	curve := s.EquityCurve([]models.RoundTrip{trip(100, 101, 1, at(9, 0, 0))})
	require.Len(t, curve, 2)
	assert.Equal(t, at(8, 0, 0).UnixMilli(), curve[0].TimestampMs)
	assert.Equal(t, at(15, 15, 0), s.End(at(12, 0, 0)))
}

func TestParseSessionErrors(t *testing.T) {
	_, err := ParseSession("9h30", "16:00")
	assert.Error(t, err)

	_, err = ParseSession("16:00", "09:30")
	assert.Error(t, err)
}

func TestEquityPointTime(t *testing.T) {
	p := models.EquityPoint{TimestampMs: at(10, 0, 0).UnixMilli()}
	assert.True(t, p.Time(time.UTC).Equal(at(10, 0, 0)))
}
