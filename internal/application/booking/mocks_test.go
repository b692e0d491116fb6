package booking

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/journal"
)

type mockBackend struct{ mock.Mock }

func (m *mockBackend) Available(ctx context.Context, q reservation.Query) ([]reservation.Option, error) {
	args := m.Called(ctx, q)
	opts, _ := args.Get(0).([]reservation.Option)
	return opts, args.Error(1)
}

func (m *mockBackend) ListReservations(ctx context.Context, f reservation.ListFilter) ([]reservation.Reservation, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]reservation.Reservation)
	return list, args.Error(1)
}

func (m *mockBackend) GetReservation(ctx context.Context, id int64) (reservation.Reservation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(reservation.Reservation), args.Error(1)
}

func (m *mockBackend) CreateReservation(ctx context.Context, in reservation.ReservationCreate) (reservation.Reservation, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(reservation.Reservation), args.Error(1)
}

func (m *mockBackend) UpdateReservation(ctx context.Context, id int64, patch reservation.ReservationUpdate) (reservation.Reservation, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(reservation.Reservation), args.Error(1)
}

func (m *mockBackend) CancelReservation(ctx context.Context, id int64) (reservation.Reservation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(reservation.Reservation), args.Error(1)
}

type mockRefresher struct{ mock.Mock }

func (m *mockRefresher) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) Record(ctx context.Context, e journal.Entry) error {
	return m.Called(ctx, e).Error(0)
}
