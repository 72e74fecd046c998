/*
Package report computes the operational and financial rollups of the
reservation book.

PURPOSE:
  Every function here is a pure function of a reservation snapshot and an
  explicit clock. Nothing is cached or persisted; the same input always
  yields the same output.

KEY CONCEPTS:
  - Period / Window: the dashboard filter (day, week, month, year) resolved
    against "now" into an inclusive range of calendar days
  - DailyCounts: calendar badges per day (scheduled, created, no-shows)
  - PeriodStats: one unit's dashboard
  - GlobalStats: the group-wide dashboard with per-unit breakdown
  - ExportCSV: flat export of the raw records

WINDOWS:
  day:   start of today
  week:  now - 7 days
  month: now - 1 calendar month
  year:  now - 1 calendar year

  A reservation belongs to the window when start.day <= date <= now.day.
  Both bounds are calendar days in the location of "now".
*/
package report

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"

	"github.com/walterpribes/jotakareservas1/reservation"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates a period name. Empty defaults to month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", &reservation.ValidationError{Field: "period", Reason: fmt.Sprintf("unknown period %q", s)}
	}
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow turns a period into a window ending at now. The end is
// the day of at, so bookings dated after today fall outside every period.
// Earlier dashboards only bounded the start and counted future bookings too.
func ResolveWindow(p Period, at time.Time) Window {
	var start time.Time
	switch p {
	case PeriodDay:
		start = now.With(at).BeginningOfDay()
	case PeriodWeek:
		start = at.AddDate(0, 0, -7)
	case PeriodYear:
		start = at.AddDate(-1, 0, 0)
	default:
		start = at.AddDate(0, -1, 0)
	}
	return Window{Start: start, End: at}
}

// MonthWindow covers a whole calendar month in loc.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	first := time.Date(year, month, 1, 12, 0, 0, 0, loc)
	m := now.With(first)
	return Window{Start: m.BeginningOfMonth(), End: m.EndOfMonth()}
}

func (w Window) From() string { return w.Start.Format(reservation.DateLayout) }
func (w Window) To() string   { return w.End.Format(reservation.DateLayout) }

// Location is where creation timestamps are bucketed into days.
func (w Window) Location() *time.Location {
	if w.End.IsZero() {
		return time.UTC
	}
	return w.End.Location()
}

// Contains reports whether a YYYY-MM-DD date falls inside the window.
func (w Window) Contains(date string) bool {
	return date >= w.From() && date <= w.To()
}

// Filter narrows a store query to the window. An empty unit means all units.
func (w Window) Filter(unit reservation.UnitID) reservation.ReservationFilter {
	return reservation.ReservationFilter{UnitID: unit, DateFrom: w.From(), DateTo: w.To()}
}

func inWindow(rs []reservation.Reservation, w Window) []reservation.Reservation {
	out := make([]reservation.Reservation, 0, len(rs))
	for _, r := range rs {
		if w.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}
