// Package calendar models the visible week of the agenda and the derived per-day view.
package calendar

import (
	"time"

	"github.com/example/rezzydesk/internal/domain/reservation"
)

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	d := midnight(t)
	diff := 1 - int(d.Weekday())
	if d.Weekday() == time.Sunday {
		diff = -6
	}
	return d.AddDate(0, 0, diff)
}

// Window is the navigator state: the Monday the visible week starts on and the selected day.
// The selected day may lie outside the visible week after a shift.
type Window struct {
	weekStart time.Time
	selected  time.Time
}

func NewWindow(now time.Time) Window {
	return Window{weekStart: WeekStart(now), selected: midnight(now)}
}

// NewWindowAt opens the window on the week containing day with day selected.
func NewWindowAt(day time.Time) Window {
	return NewWindow(day)
}

func (w Window) WeekStart() time.Time { return w.weekStart }
func (w Window) Selected() time.Time  { return w.selected }

func (w Window) SelectedISO() string { return w.selected.Format(reservation.DateFormat) }

// SelectDay changes the selected day only.
func (w *Window) SelectDay(day time.Time) {
	w.selected = midnight(day)
}

// ShiftWeek moves the visible week by delta weeks; the selection stays where it was.
func (w *Window) ShiftWeek(delta int) {
	w.weekStart = w.weekStart.AddDate(0, 0, 7*delta)
}

// Range returns the ISO dates of the first and last visible day.
func (w Window) Range() (string, string) {
	return w.weekStart.Format(reservation.DateFormat), w.weekStart.AddDate(0, 0, 6).Format(reservation.DateFormat)
}

// Contains reports whether day falls inside the visible week.
func (w Window) Contains(day time.Time) bool {
	d := midnight(day)
	return !d.Before(w.weekStart) && d.Before(w.weekStart.AddDate(0, 0, 7))
}

// ParseDate reads "YYYY-MM-DD" as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(reservation.DateFormat, s, loc)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
