package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/logging"
	"pnl-attribution/internal/models"
)

// driverName is go-sqlite3 with the journal's SQL functions registered.
const driverName = "sqlite3_pnl"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("local_date", localDate, true)
		},
	})
}

var locations sync.Map

// localDate formats a unix millisecond timestamp as YYYY-MM-DD in the named
// timezone.
func localDate(ms int64, tz string) (string, error) {
	loc, ok := locations.Load(tz)
	if !ok {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return "", err
		}
		loc, _ = locations.LoadOrStore(tz, l)
	}
	return time.UnixMilli(ms).In(loc.(*time.Location)).Format("2006-01-02"), nil
}

// SQLiteStore implements ExecutionStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLiteStore creates a new SQLite-based execution store. Execution times
// are returned in loc.
func NewSQLiteStore(dbPath string, loc *time.Location) (*SQLiteStore, error) {
	if loc == nil {
		loc = time.Local
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == ":memory:" {
		dsn = dbPath
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	store := &SQLiteStore{db: db, loc: loc}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Raw option executions, one row per fill
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		strike REAL NOT NULL,
		expiry TEXT NOT NULL,
		qty INTEGER NOT NULL,
		effect TEXT NOT NULL,
		dtg_ms INTEGER NOT NULL,
		price TEXT NOT NULL,
		spot REAL NOT NULL,
		iv REAL NOT NULL,
		delta REAL NOT NULL,
		theta REAL NOT NULL,
		vega REAL NOT NULL,
		gamma REAL NOT NULL,
		occurrence INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, strike, expiry, qty, effect, dtg_ms, price, occurrence)
	);

	CREATE INDEX IF NOT EXISTS idx_executions_dtg ON executions(dtg_ms);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// fillKey is the content of an execution that identifies a fill.
type fillKey struct {
	symbol string
	strike float64
	expiry string
	qty    int
	effect string
	dtgMs  int64
	price  string
}

func fillKeyOf(e models.Execution) fillKey {
	return fillKey{e.Symbol, e.Strike, e.Expiry, e.Qty, e.RawEffect, e.Time.UnixMilli(), e.Price.String()}
}

// SaveExecutions stores executions in a single transaction and returns how
// many were new. Executions without an ID get a ULID.
//
// Identical fills within one batch are numbered by occurrence, so repeated
// partial fills are all kept while saving the same batch again inserts
// nothing.
func (s *SQLiteStore) SaveExecutions(ctx context.Context, executions []models.Execution) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO executions
		(id, symbol, strike, expiry, qty, effect, dtg_ms, price, spot, iv, delta, theta, vega, gamma, occurrence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer stmt.Close()

	seen := make(map[fillKey]int)
	inserted := 0
	for i, e := range executions {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("execution %d: %w", i, err)
		}
		id := e.ID
		if id == "" {
			id = ulid.Make().String()
		}
		key := fillKeyOf(e)
		occurrence := seen[key]
		seen[key]++

		res, err := stmt.ExecContext(ctx,
			id, e.Symbol, e.Strike, e.Expiry, e.Qty, e.RawEffect, e.Time.UnixMilli(), e.Price.String(),
			e.Spot, e.IV, e.Greeks.Delta, e.Greeks.Theta, e.Greeks.Vega, e.Greeks.Gamma, occurrence,
		)
		if err != nil {
			return 0, apperrors.NewDataError("execution", e.Symbol, "insert failed", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}

	logger := logging.FromContext(ctx)
	logger.Debug().
		Int("executions", len(executions)).
		Int("inserted", inserted).
		Msg("Executions saved")
	return inserted, nil
}

// GetExecutionsForDay returns one calendar day of executions in time order.
func (s *SQLiteStore) GetExecutionsForDay(ctx context.Context, day time.Time) ([]models.Execution, error) {
	start, end := DayBounds(day, s.loc)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, strike, expiry, qty, effect, dtg_ms, price, spot, iv, delta, theta, vega, gamma
		FROM executions
		WHERE dtg_ms >= ? AND dtg_ms < ?
		ORDER BY dtg_ms ASC, rowid ASC
	`, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	executions := make([]models.Execution, 0)
	for rows.Next() {
		e, err := s.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}

	logger := logging.FromContext(ctx)
	logger.Debug().
		Str("date", start.Format("2006-01-02")).
		Int("executions", len(executions)).
		Msg("Executions loaded")
	return executions, nil
}

func (s *SQLiteStore) scanExecution(rows *sql.Rows) (models.Execution, error) {
	var (
		e      models.Execution
		dtgMs  int64
		price  string
		effect string
	)
	if err := rows.Scan(
		&e.ID, &e.Symbol, &e.Strike, &e.Expiry, &e.Qty, &effect, &dtgMs, &price,
		&e.Spot, &e.IV, &e.Greeks.Delta, &e.Greeks.Theta, &e.Greeks.Vega, &e.Greeks.Gamma,
	); err != nil {
		return models.Execution{}, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return models.Execution{}, apperrors.NewDataError("execution", e.ID, "bad stored price", err)
	}
	e.Price = p
	e.RawEffect = effect
	e.Effect = models.ClassifyEffect(effect)
	e.Time = time.UnixMilli(dtgMs).In(s.loc)
	return e, nil
}

// ListTradingDays returns up to limit days with executions, newest first.
// A limit of zero or less returns every day.
func (s *SQLiteStore) ListTradingDays(ctx context.Context, limit int) ([]TradingDay, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT local_date(dtg_ms, ?) AS day, COUNT(*)
		FROM executions
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?
	`, s.loc.String(), limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	days := make([]TradingDay, 0)
	for rows.Next() {
		var (
			date string
			n    int
		)
		if err := rows.Scan(&date, &n); err != nil {
			return nil, err
		}
		start, err := time.ParseInLocation("2006-01-02", date, s.loc)
		if err != nil {
			return nil, apperrors.NewDataError("trading day", date, "bad stored date", err)
		}
		days = append(days, TradingDay{Date: start, Executions: n})
	}
	return days, rows.Err()
}

// CountExecutions returns the number of stored executions.
func (s *SQLiteStore) CountExecutions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM executions`).Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	return n, nil
}
