// Package store provides persistence for raw option executions.
package store

import (
	"context"
	"time"

	"pnl-attribution/internal/models"
)

// ExecutionStore defines the interface for execution persistence.
type ExecutionStore interface {
	// SaveExecutions stores executions, skipping exact duplicates, and
	// returns how many were inserted.
	SaveExecutions(ctx context.Context, executions []models.Execution) (int, error)

	// GetExecutionsForDay returns the executions of one calendar day in the
	// store's location, ordered by time then insertion order.
	GetExecutionsForDay(ctx context.Context, day time.Time) ([]models.Execution, error)

	// ListTradingDays returns the most recent days that have executions.
	ListTradingDays(ctx context.Context, limit int) ([]TradingDay, error)

	CountExecutions(ctx context.Context) (int, error)

	Close() error
}

// TradingDay is a calendar day with stored executions.
type TradingDay struct {
	Date       time.Time
	Executions int
}

// DayBounds returns [start, end) of day's calendar date in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
