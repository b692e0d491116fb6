package calendar

import (
	"sort"
	"time"

	"github.com/example/rezzydesk/internal/domain/reservation"
)

const StartingSoonWindow = 60 * time.Minute

// Day is one cell of the week strip.
type Day struct {
	Date             time.Time
	ISODate          string
	IsToday          bool
	IsSelected       bool
	ReservationCount int
}

// Days derives the seven cells of the visible week. Today is taken from now on every call
// so the badge follows the wall clock across midnight.
func (w Window) Days(now time.Time, list []reservation.Reservation) []Day {
	counts := make(map[string]int)
	for _, r := range list {
		if r.Status == reservation.StatusCancelled {
			continue
		}
		counts[r.Date]++
	}
	today := now.In(w.weekStart.Location()).Format(reservation.DateFormat)
	selected := w.SelectedISO()

	out := make([]Day, 0, 7)
	for i := 0; i < 7; i++ {
		d := w.weekStart.AddDate(0, 0, i)
		iso := d.Format(reservation.DateFormat)
		out = append(out, Day{
			Date:             d,
			ISODate:          iso,
			IsToday:          iso == today,
			IsSelected:       iso == selected,
			ReservationCount: counts[iso],
		})
	}
	return out
}

// DayReservations returns the reservations on day ordered by start time.
func DayReservations(day string, list []reservation.Reservation) []reservation.Reservation {
	var out []reservation.Reservation
	for _, r := range list {
		if r.Date == day {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return reservation.NormalizeTime(out[i].Time) < reservation.NormalizeTime(out[j].Time)
	})
	return out
}

// StartsAt combines the reservation date and time in loc.
func StartsAt(r reservation.Reservation, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", r.Date+" "+reservation.NormalizeTime(r.Time), loc)
}

// StartingSoon is true for a confirmed reservation starting within the next hour of now.
// It depends on the wall clock only, so callers re-evaluate it on a timer.
func StartingSoon(r reservation.Reservation, now time.Time) bool {
	if r.Status != reservation.StatusConfirmed {
		return false
	}
	start, err := StartsAt(r, now.Location())
	if err != nil {
		return false
	}
	diff := start.Sub(now)
	return diff >= 0 && diff <= StartingSoonWindow
}
