package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/journal"
	"github.com/example/rezzydesk/internal/metrics"
)

// Refresher reloads whatever list shows reservations. It runs after every successful mutation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Recorder keeps an audit trail of mutations.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Service commits reservation mutations. The server is authoritative: nothing is merged
// locally, the refresher refetches instead.
type Service struct {
	backend   reservation.Backend
	refresher Refresher
	recorder  Recorder
	actor     string
	log       Logger
	metrics   *metrics.Metrics
}

type ServiceOption func(*Service)

func WithRefresher(r Refresher) ServiceOption {
	return func(s *Service) { s.refresher = r }
}

func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithActor names the user written to the journal.
func WithActor(username string) ServiceOption {
	return func(s *Service) { s.actor = username }
}

func WithLogger(l Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(backend reservation.Backend, opts ...ServiceOption) *Service {
	s := &Service{backend: backend, log: nopLogger{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Backend() reservation.Backend { return s.backend }

// Create books the reservation with its table assignment in one request.
func (s *Service) Create(ctx context.Context, in reservation.ReservationCreate) (reservation.Reservation, error) {
	if len(in.TableIDs) == 0 {
		return reservation.Reservation{}, &ValidationError{Field: "table_ids", Message: "select a table or combo"}
	}
	out, err := s.backend.CreateReservation(ctx, in)
	s.finish(ctx, journal.OpCreate, out.ID, in, err)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	s.log.Info("created reservation %d for %q on %s %s (%s)", out.ID, out.GuestName, out.Date, reservation.NormalizeTime(out.Time), out.TableLabel())
	return out, nil
}

// Update patches guest details, timing or status. Tables cannot be changed here.
func (s *Service) Update(ctx context.Context, id int64, patch reservation.ReservationUpdate) (reservation.Reservation, error) {
	if patch.Time != nil {
		t := reservation.NormalizeTime(*patch.Time)
		patch.Time = &t
	}
	if err := ValidateUpdate(patch); err != nil {
		return reservation.Reservation{}, err
	}
	if patch.IsEmpty() {
		return reservation.Reservation{}, &ValidationError{Field: "patch", Message: "nothing to update"}
	}
	out, err := s.backend.UpdateReservation(ctx, id, patch)
	s.finish(ctx, journal.OpUpdate, id, patch, err)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("update reservation %d: %w", id, err)
	}
	s.log.Info("updated reservation %d", id)
	return out, nil
}

// Cancel marks the reservation cancelled. The record stays; only confirmed or seated
// reservations are sent to the server.
func (s *Service) Cancel(ctx context.Context, id int64) (reservation.Reservation, error) {
	cur, err := s.backend.GetReservation(ctx, id)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("load reservation %d: %w", id, err)
	}
	if !cur.Status.Cancellable() {
		return reservation.Reservation{}, fmt.Errorf("reservation %d is %s: %w", id, cur.Status, ErrNotCancellable)
	}
	out, err := s.backend.CancelReservation(ctx, id)
	s.finish(ctx, journal.OpCancel, id, nil, err)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("cancel reservation %d: %w", id, err)
	}
	s.log.Info("cancelled reservation %d", id)
	return out, nil
}

func (s *Service) finish(ctx context.Context, op journal.Op, id int64, req interface{}, err error) {
	s.metrics.Mutation(string(op), err)
	s.record(ctx, op, id, req, err)
	if err != nil || s.refresher == nil {
		return
	}
	if rerr := s.refresher.Refresh(ctx); rerr != nil {
		s.metrics.RefreshFailed()
		s.log.Warn("refresh after %s: %v", op, rerr)
	}
}

func (s *Service) record(ctx context.Context, op journal.Op, id int64, req interface{}, err error) {
	if s.recorder == nil {
		return
	}
	e := journal.Entry{Op: op, ReservationID: id, Username: s.actor, Outcome: journal.OutcomeOK}
	if err != nil {
		e.Outcome = journal.OutcomeError
		e.Detail = err.Error()
	}
	if req != nil {
		if b, merr := json.Marshal(req); merr == nil {
			e.Request = b
		}
	}
	if rerr := s.recorder.Record(ctx, e); rerr != nil {
		s.log.Warn("journal %s: %v", op, rerr)
	}
}

// IsValidation reports whether err was raised by client-side validation.
func IsValidation(err error) bool {
	var one *ValidationError
	var many ValidationErrors
	return errors.As(err, &one) || errors.As(err, &many)
}
