package reservation

import (
	"fmt"
	"strings"
)

const DateFormat = "2006-01-02"

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var Statuses = []Status{StatusConfirmed, StatusSeated, StatusCompleted, StatusCancelled, StatusNoShow}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Cancellable reports whether the cancel action is offered for a reservation in this status.
func (s Status) Cancellable() bool {
	return s == StatusConfirmed || s == StatusSeated
}

type Table struct {
	ID            int64  `json:"id"`
	Number        string `json:"table_number"`
	CurrentChairs int    `json:"current_chairs"`
	MaxChairs     int    `json:"max_chairs"`
	IsActive      bool   `json:"is_active"`
}

// Reservation is owned by the Rezzy server; the client never edits a local copy.
type Reservation struct {
	ID              int64   `json:"id"`
	GuestName       string  `json:"guest_name"`
	PartySize       int     `json:"party_size"`
	Phone           *string `json:"phone_number"`
	Notes           *string `json:"notes"`
	Date            string  `json:"reservation_date"`
	Time            string  `json:"reservation_time"`
	DurationMinutes int     `json:"duration_minutes"`
	TableIDs        []int64 `json:"table_ids"`
	Tables          []Table `json:"tables"`
	Status          Status  `json:"status"`
}

// TableLabel renders the assigned tables the way the agenda shows them.
func (r Reservation) TableLabel() string {
	switch len(r.Tables) {
	case 0:
		return "No table"
	case 1:
		return "Table " + r.Tables[0].Number
	}
	nums := make([]string, 0, len(r.Tables))
	for _, t := range r.Tables {
		nums = append(nums, t.Number)
	}
	return "Tables " + strings.Join(nums, " + ")
}

// ReservationCreate is the POST /reservations body.
type ReservationCreate struct {
	GuestName       string  `json:"guest_name"`
	PartySize       int     `json:"party_size"`
	Phone           *string `json:"phone_number,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	Date            string  `json:"reservation_date"`
	Time            string  `json:"reservation_time"`
	DurationMinutes int     `json:"duration_minutes"`
	TableIDs        []int64 `json:"table_ids"`
}

// ReservationUpdate is the PATCH body. Table assignment is fixed at creation,
// so there is deliberately no table field here: moving a party means cancel + create.
type ReservationUpdate struct {
	GuestName       *string `json:"guest_name,omitempty"`
	PartySize       *int    `json:"party_size,omitempty"`
	Phone           *string `json:"phone_number,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	Date            *string `json:"reservation_date,omitempty"`
	Time            *string `json:"reservation_time,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Status          *Status `json:"status,omitempty"`
}

func (u ReservationUpdate) IsEmpty() bool {
	return u.GuestName == nil && u.PartySize == nil && u.Phone == nil && u.Notes == nil &&
		u.Date == nil && u.Time == nil && u.DurationMinutes == nil && u.Status == nil
}

// ListFilter maps to the GET /reservations query string. Empty fields are omitted.
type ListFilter struct {
	StartDate string
	EndDate   string
	Status    Status
}
