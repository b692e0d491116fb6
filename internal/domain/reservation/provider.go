package reservation

import "context"

// Query identifies one availability search. Every field participates in staleness:
// a result is only valid for the exact query that produced it.
type Query struct {
	Date            string
	Time            string
	PartySize       int
	DurationMinutes int
}

const DefaultDurationMinutes = 90

// AvailabilityFinder is the availability endpoint as seen by the booking form.
type AvailabilityFinder interface {
	Available(ctx context.Context, q Query) ([]Option, error)
}

// Backend is the subset of the Rezzy API the scheduling workflow depends on.
type Backend interface {
	AvailabilityFinder
	ListReservations(ctx context.Context, f ListFilter) ([]Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	CreateReservation(ctx context.Context, in ReservationCreate) (Reservation, error)
	UpdateReservation(ctx context.Context, id int64, patch ReservationUpdate) (Reservation, error)
	CancelReservation(ctx context.Context, id int64) (Reservation, error)
}
