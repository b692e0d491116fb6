package booking

import (
	"time"

	"github.com/example/rezzydesk/internal/domain/reservation"
)

const (
	MinDurationMinutes  = 30
	PhoneRequiredAtSize = 4
)

func checkDate(v *ValidationErrors, date string) {
	if _, err := time.Parse(reservation.DateFormat, date); err != nil {
		v.add("reservation_date", "enter a date as YYYY-MM-DD")
	}
}

func checkTime(v *ValidationErrors, t string) {
	if !reservation.IsSlot(reservation.NormalizeTime(t)) {
		v.add("reservation_time", "pick a time on the 15-minute grid")
	}
}

func checkPartySize(v *ValidationErrors, n int) {
	if n < 1 {
		v.add("party_size", "party size must be at least 1")
	}
}

func checkDuration(v *ValidationErrors, minutes int) {
	if minutes < MinDurationMinutes || minutes%reservation.SlotMinutes != 0 {
		v.add("duration_minutes", "duration must be at least 30 minutes in 15-minute steps")
	}
}

// ValidateQuery checks that an availability search is worth sending.
func ValidateQuery(q reservation.Query) error {
	var v ValidationErrors
	checkDate(&v, q.Date)
	checkTime(&v, q.Time)
	checkPartySize(&v, q.PartySize)
	checkDuration(&v, q.DurationMinutes)
	return v.orNil()
}

// ValidateUpdate checks only the fields a patch carries.
func ValidateUpdate(p reservation.ReservationUpdate) error {
	var v ValidationErrors
	if p.GuestName != nil && trimmed(*p.GuestName) == "" {
		v.add("guest_name", "guest name is required")
	}
	if p.PartySize != nil {
		checkPartySize(&v, *p.PartySize)
	}
	if p.Date != nil {
		checkDate(&v, *p.Date)
	}
	if p.Time != nil {
		checkTime(&v, *p.Time)
	}
	if p.DurationMinutes != nil {
		checkDuration(&v, *p.DurationMinutes)
	}
	if p.Status != nil {
		if _, err := reservation.ParseStatus(string(*p.Status)); err != nil {
			v.add("status", err.Error())
		}
	}
	return v.orNil()
}
