package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rezzydesk/internal/domain/reservation"
)

func TestWeekStart_AlwaysMondayContainingDate(t *testing.T) {
	base := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	for i := 0; i < 400; i++ {
		d := base.AddDate(0, 0, i)
		ws := WeekStart(d)
		assert.Equal(t, time.Monday, ws.Weekday(), d.String())
		assert.Equal(t, 0, ws.Hour())

		w := NewWindow(d)
		assert.True(t, w.Contains(d), d.String())
	}
}

func TestWeekStart_Sunday(t *testing.T) {
	sunday := time.Date(2024, 6, 16, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
}

func TestWindow_SelectAndShiftAreIndependent(t *testing.T) {
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	w := NewWindow(now)

	w.SelectDay(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-06-14", w.SelectedISO())
	start, end := w.Range()
	assert.Equal(t, "2024-06-10", start)
	assert.Equal(t, "2024-06-16", end)

	w.ShiftWeek(1)
	start, end = w.Range()
	assert.Equal(t, "2024-06-17", start)
	assert.Equal(t, "2024-06-23", end)
	assert.Equal(t, "2024-06-14", w.SelectedISO())

	w.ShiftWeek(-2)
	start, _ = w.Range()
	assert.Equal(t, "2024-06-03", start)
}

func TestDays(t *testing.T) {
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	w := NewWindow(now)
	list := []reservation.Reservation{
		{ID: 1, Date: "2024-06-12", Time: "19:00:00", Status: reservation.StatusConfirmed},
		{ID: 2, Date: "2024-06-12", Time: "18:00:00", Status: reservation.StatusCancelled},
		{ID: 3, Date: "2024-06-12", Time: "17:00:00", Status: reservation.StatusSeated},
		{ID: 4, Date: "2024-06-15", Time: "12:00:00", Status: reservation.StatusNoShow},
	}

	days := w.Days(now, list)
	require.Len(t, days, 7)
	assert.Equal(t, "2024-06-10", days[0].ISODate)
	assert.Equal(t, 2, days[2].ReservationCount)
	assert.True(t, days[2].IsToday)
	assert.True(t, days[2].IsSelected)
	assert.Equal(t, 1, days[5].ReservationCount)
	assert.Equal(t, 0, days[0].ReservationCount)

	// today follows the clock passed in, not the clock at window creation
	later := now.AddDate(0, 0, 1)
	days = w.Days(later, list)
	assert.False(t, days[2].IsToday)
	assert.True(t, days[3].IsToday)
}

func TestDayReservations_SortedByTime(t *testing.T) {
	list := []reservation.Reservation{
		{ID: 1, Date: "2024-06-12", Time: "19:00:00"},
		{ID: 2, Date: "2024-06-13", Time: "08:00:00"},
		{ID: 3, Date: "2024-06-12", Time: "17:30"},
	}
	got := DayReservations("2024-06-12", list)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestStartingSoon(t *testing.T) {
	loc := time.FixedZone("local", -4*3600)
	now := time.Date(2024, 6, 10, 18, 30, 0, 0, loc)
	at := func(d time.Duration) string { return now.Add(d).Format("15:04") }

	r := reservation.Reservation{Date: "2024-06-10", Time: at(30 * time.Minute), Status: reservation.StatusConfirmed}
	assert.True(t, StartingSoon(r, now))

	cancelled := r
	cancelled.Status = reservation.StatusCancelled
	assert.False(t, StartingSoon(cancelled, now))

	far := r
	far.Time = at(90 * time.Minute)
	assert.False(t, StartingSoon(far, now))

	past := r
	past.Time = at(-5 * time.Minute)
	assert.False(t, StartingSoon(past, now))

	edge := r
	edge.Time = at(60 * time.Minute)
	assert.True(t, StartingSoon(edge, now))

	// the same reservation drops out once the clock passes its start
	assert.False(t, StartingSoon(r, now.Add(31*time.Minute)))
}
