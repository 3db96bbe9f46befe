package pnl

import (
	"fmt"
	"sort"
	"time"

	"pnl-attribution/internal/models"
)

// Session is the nominal trading session of a day, as wall-clock times.
type Session struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// DefaultSession is the 09:30 to 16:00 equity session.
var DefaultSession = Session{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0}

// ParseSession builds a Session from "HH:MM" open and close times.
func ParseSession(openAt, closeAt string) (Session, error) {
	o, err := time.Parse("15:04", openAt)
	if err != nil {
		return Session{}, fmt.Errorf("session open %q: %w", openAt, err)
	}
	c, err := time.Parse("15:04", closeAt)
	if err != nil {
		return Session{}, fmt.Errorf("session close %q: %w", closeAt, err)
	}
	s := Session{OpenHour: o.Hour(), OpenMinute: o.Minute(), CloseHour: c.Hour(), CloseMinute: c.Minute()}
	if !s.Start(time.Time{}).Before(s.End(time.Time{})) {
		return Session{}, fmt.Errorf("session open %s must be before close %s", openAt, closeAt)
	}
	return s, nil
}

// Start returns the session open on day's calendar date in day's location.
func (s Session) Start(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.OpenHour, s.OpenMinute, 0, 0, day.Location())
}

// End returns the session close on day's calendar date. It is informational;
// trades closing after it still appear on the curve.
func (s Session) End(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.CloseHour, s.CloseMinute, 0, 0, day.Location())
}

// BuildEquityCurve builds the cumulative realized P&L curve with the default
// session.
func BuildEquityCurve(trips []models.RoundTrip) []models.EquityPoint {
	return DefaultSession.EquityCurve(trips)
}

// EquityCurve sorts trips by close time (ties keep input order) and emits an
// anchor at session open followed by one running-sum point per trip. The
// anchor date is the date of the earliest close. Empty input gives an empty
// curve with no anchor.
func (s Session) EquityCurve(trips []models.RoundTrip) []models.EquityPoint {
	if len(trips) == 0 {
		return []models.EquityPoint{}
	}

	sorted := make([]models.RoundTrip, len(trips))
	copy(sorted, trips)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CloseTime.Before(sorted[j].CloseTime)
	})

	points := make([]models.EquityPoint, 0, len(sorted)+1)
	points = append(points, models.EquityPoint{
		TimestampMs: s.Start(sorted[0].CloseTime).UnixMilli(),
		Value:       0,
	})

	var cum float64
	for _, rt := range sorted {
		cum += rt.DPnL
		points = append(points, models.EquityPoint{
			TimestampMs: rt.CloseTime.UnixMilli(),
			Value:       cum,
		})
	}
	return points
}
