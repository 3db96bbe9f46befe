package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/logging"
	"pnl-attribution/internal/models"
)

var nyc = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"), nyc)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func execAt(effect string, at time.Time, price string) models.Execution {
	return models.NewExecution("SPY Call", 500, "2025-03-21", 2, effect, at,
		decimal.RequireFromString(price), 560.1, 0.3,
		models.OptionGreeks{Delta: 0.5, Theta: -0.1, Vega: 0.2, Gamma: 0.05})
}

func TestSaveAndLoadDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2025, 3, 14, 0, 0, 0, 0, nyc)
	execs := []models.Execution{
		execAt("CLOSE", day.Add(11*time.Hour), "2.50"),
		execAt("Opening", day.Add(10*time.Hour), "1.50"),
		execAt("Opening", day.Add(-time.Hour), "9.99"),          // previous day
		execAt("Opening", day.Add(24*time.Hour+time.Hour), "1"), // next day
	}

	n, err := s.SaveExecutions(ctx, execs)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := s.GetExecutionsForDay(ctx, day.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.EffectOpen, got[0].Effect)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, models.EffectClose, got[1].Effect)
	assert.Equal(t, nyc, got[0].Time.Location())
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestSaveSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, 3, 14, 10, 0, 0, 0, nyc)
	execs := []models.Execution{execAt("Opening", at, "1.00"), execAt("CLOSE", at.Add(time.Minute), "1.10")}

	n, err := s.SaveExecutions(ctx, execs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SaveExecutions(ctx, execs)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := s.CountExecutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveKeepsRepeatedFills(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Two partial fills of the same size, second and price on each side.
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, nyc)
	execs := []models.Execution{
		execAt("OPEN", at, "1.00"),
		execAt("OPEN", at, "1.00"),
		execAt("CLOSE", at.Add(time.Minute), "1.10"),
		execAt("CLOSE", at.Add(time.Minute), "1.10"),
	}

	n, err := s.SaveExecutions(ctx, execs)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.SaveExecutions(ctx, execs)
	require.NoError(t, err)
	assert.Zero(t, n)

	// A later export with a third identical fill adds only that fill.
	n, err = s.SaveExecutions(ctx, append(execs, execAt("OPEN", at, "1.00")))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetExecutionsForDay(ctx, at)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSaveLogsFromContext(t *testing.T) {
	s := newTestStore(t)

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), zerolog.New(&buf).Level(zerolog.DebugLevel))

	_, err := s.SaveExecutions(ctx, []models.Execution{execAt("OPEN", time.Date(2025, 3, 14, 10, 0, 0, 0, nyc), "1")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"inserted":1`)
	assert.Contains(t, buf.String(), "Executions saved")
}

func TestSameTimeKeepsInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, 3, 14, 10, 0, 0, 0, nyc)
	_, err := s.SaveExecutions(ctx, []models.Execution{
		execAt("Opening", at, "1.00"),
		execAt("CLOSE", at, "1.20"),
	})
	require.NoError(t, err)

	got, err := s.GetExecutionsForDay(ctx, at)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Opening", got[0].RawEffect)
	assert.Equal(t, "CLOSE", got[1].RawEffect)
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	bad := execAt("Opening", time.Time{}, "1")

	_, err := s.SaveExecutions(context.Background(), []models.Execution{bad})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidExecution))

	count, err := s.CountExecutions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListTradingDays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d1 := time.Date(2025, 3, 12, 10, 0, 0, 0, nyc)
	d2 := time.Date(2025, 3, 13, 10, 0, 0, 0, nyc)
	d3 := time.Date(2025, 3, 14, 10, 0, 0, 0, nyc)
	_, err := s.SaveExecutions(ctx, []models.Execution{
		execAt("Opening", d1, "1"),
		execAt("Opening", d2, "1"),
		execAt("CLOSE", d2.Add(time.Hour), "2"),
		execAt("Opening", d3, "1"),
		// 23:30 local is still the 14th even though it is the 15th in UTC.
		execAt("CLOSE", d3.Add(13*time.Hour+30*time.Minute), "2"),
	})
	require.NoError(t, err)

	days, err := s.ListTradingDays(ctx, 0)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-03-14", days[0].Date.Format("2006-01-02"))
	assert.Equal(t, 2, days[0].Executions)
	assert.Equal(t, 2, days[1].Executions)
	assert.Equal(t, 1, days[2].Executions)

	days, err = s.ListTradingDays(ctx, 2)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-03-13", days[1].Date.Format("2006-01-02"))
}

func TestEmptyDay(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetExecutionsForDay(context.Background(), time.Now())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.SaveExecutions(context.Background(), []models.Execution{execAt("Opening", time.Now(), "1")})
	require.NoError(t, err)
	count, err := s.CountExecutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
