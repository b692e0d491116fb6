package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/journal"
	"github.com/example/rezzydesk/internal/rezzy"
	"github.com/example/rezzydesk/internal/session"
)

func TestCreate_EmptyTablesNeverReachesNetwork(t *testing.T) {
	be := &mockBackend{}
	svc := NewService(be)
	_, err := svc.Create(context.Background(), reservation.ReservationCreate{GuestName: "Smith", PartySize: 2})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "table_ids", verr.Field)
	be.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestCreate_RefreshesAndRecords(t *testing.T) {
	be := &mockBackend{}
	ref := &mockRefresher{}
	rec := &mockRecorder{}
	in := reservation.ReservationCreate{GuestName: "Smith", PartySize: 2, Date: "2024-06-10", Time: "19:00", DurationMinutes: 90, TableIDs: []int64{3}}
	be.On("CreateReservation", mock.Anything, in).Return(reservation.Reservation{ID: 5, GuestName: "Smith", TableIDs: []int64{3}}, nil)
	ref.On("Refresh", mock.Anything).Return(nil).Once()
	rec.On("Record", mock.Anything, mock.MatchedBy(func(e journal.Entry) bool {
		return e.Op == journal.OpCreate && e.ReservationID == 5 && e.Outcome == journal.OutcomeOK && e.Username == "host"
	})).Return(nil).Once()

	svc := NewService(be, WithRefresher(ref), WithRecorder(rec), WithActor("host"))
	got, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	ref.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestCreate_FailureSkipsRefresh(t *testing.T) {
	be := &mockBackend{}
	ref := &mockRefresher{}
	rec := &mockRecorder{}
	be.On("CreateReservation", mock.Anything, mock.Anything).Return(reservation.Reservation{}, errors.New("Table 3 is already booked"))
	rec.On("Record", mock.Anything, mock.MatchedBy(func(e journal.Entry) bool {
		return e.Outcome == journal.OutcomeError && strings.Contains(e.Detail, "already booked")
	})).Return(nil).Once()

	svc := NewService(be, WithRefresher(ref), WithRecorder(rec))
	_, err := svc.Create(context.Background(), reservation.ReservationCreate{TableIDs: []int64{3}})
	require.Error(t, err)
	ref.AssertNotCalled(t, "Refresh", mock.Anything)
	rec.AssertExpectations(t)
}

func TestRefreshFailureDoesNotFailMutation(t *testing.T) {
	be := &mockBackend{}
	ref := &mockRefresher{}
	be.On("CreateReservation", mock.Anything, mock.Anything).Return(reservation.Reservation{ID: 1}, nil)
	ref.On("Refresh", mock.Anything).Return(errors.New("offline"))
	_, err := NewService(be, WithRefresher(ref)).Create(context.Background(), reservation.ReservationCreate{TableIDs: []int64{1}})
	assert.NoError(t, err)
}

func TestUpdate_ValidatesAndNormalizes(t *testing.T) {
	be := &mockBackend{}
	svc := NewService(be)

	zero := 0
	_, err := svc.Update(context.Background(), 1, reservation.ReservationUpdate{PartySize: &zero})
	assert.True(t, IsValidation(err))

	_, err = svc.Update(context.Background(), 1, reservation.ReservationUpdate{})
	assert.True(t, IsValidation(err))

	tm := "20:15:00"
	be.On("UpdateReservation", mock.Anything, int64(1), mock.MatchedBy(func(p reservation.ReservationUpdate) bool {
		return p.Time != nil && *p.Time == "20:15"
	})).Return(reservation.Reservation{ID: 1, Time: "20:15:00"}, nil)
	_, err = svc.Update(context.Background(), 1, reservation.ReservationUpdate{Time: &tm})
	require.NoError(t, err)
	be.AssertExpectations(t)
}

func TestCancel_RefusesFinishedReservations(t *testing.T) {
	for _, st := range []reservation.Status{reservation.StatusCompleted, reservation.StatusCancelled} {
		be := &mockBackend{}
		be.On("GetReservation", mock.Anything, int64(4)).Return(reservation.Reservation{ID: 4, Status: st}, nil)
		_, err := NewService(be).Cancel(context.Background(), 4)
		assert.ErrorIs(t, err, ErrNotCancellable)
		be.AssertNotCalled(t, "CancelReservation", mock.Anything, mock.Anything)
	}
}

// fakeRezzy is an in-memory Rezzy API good enough for the booking flow.
type fakeRezzy struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]reservation.Reservation
	bodies []map[string]interface{}
}

func newFakeRezzy() *fakeRezzy {
	return &fakeRezzy{nextID: 1, byID: map[int64]reservation.Reservation{}}
}

func (f *fakeRezzy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	path := strings.TrimPrefix(r.URL.Path, "/reservations")

	switch {
	case r.Method == http.MethodGet && path == "/available":
		_ = enc.Encode([]reservation.Option{table3, combo12})
	case r.Method == http.MethodGet && path == "":
		out := []reservation.Reservation{}
		for i := int64(1); i < f.nextID; i++ {
			if res, ok := f.byID[i]; ok {
				out = append(out, res)
			}
		}
		_ = enc.Encode(out)
	case r.Method == http.MethodPost && path == "":
		var in reservation.ReservationCreate
		_ = json.NewDecoder(r.Body).Decode(&in)
		res := reservation.Reservation{
			ID: f.nextID, GuestName: in.GuestName, PartySize: in.PartySize, Date: in.Date,
			Time: in.Time + ":00", DurationMinutes: in.DurationMinutes, TableIDs: in.TableIDs,
			Status: reservation.StatusConfirmed,
		}
		f.byID[res.ID] = res
		f.nextID++
		w.WriteHeader(http.StatusCreated)
		_ = enc.Encode(res)
	default:
		parts := strings.Split(strings.Trim(path, "/"), "/")
		id, err := strconv.ParseInt(parts[0], 10, 64)
		res, ok := f.byID[id]
		if err != nil || !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Reservation not found"}`))
			return
		}
		switch {
		case r.Method == http.MethodGet:
		case r.Method == http.MethodPatch:
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.bodies = append(f.bodies, body)
			if name, ok := body["guest_name"].(string); ok {
				res.GuestName = name
			}
		case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "cancel":
			res.Status = reservation.StatusCancelled
		}
		f.byID[id] = res
		_ = enc.Encode(res)
	}
}

func TestEndToEnd_ComboBooking(t *testing.T) {
	fake := newFakeRezzy()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := rezzy.New(srv.URL, session.NewMemoryStore(&session.Session{Token: "tok", Username: "host"}))
	svc := NewService(client)
	ctx := context.Background()

	f := NewForm(client, "2024-06-10")
	f.SetTime("19:00")
	f.SetPartySize(4)
	f.SetDuration(90)
	require.NoError(t, f.Search(ctx))

	opts := f.Options()
	require.Len(t, opts, 2)
	assert.Equal(t, reservation.KindTable, opts[0].Kind)
	assert.Equal(t, reservation.KindCombo, opts[1].Kind)

	require.NoError(t, f.Select(opts[1]))
	f.SetGuestName("Smith")
	created, err := f.Submit(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, created.TableIDs)
	assert.Equal(t, reservation.StatusConfirmed, created.Status)
}

func TestEditAndCancelKeepRecord(t *testing.T) {
	fake := newFakeRezzy()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := rezzy.New(srv.URL, session.NewMemoryStore(&session.Session{Token: "tok"}))
	svc := NewService(client)
	ctx := context.Background()

	created, err := svc.Create(ctx, reservation.ReservationCreate{
		GuestName: "Smith", PartySize: 2, Date: "2024-06-10", Time: "19:00", DurationMinutes: 90, TableIDs: []int64{3},
	})
	require.NoError(t, err)

	name := "Smythe"
	updated, err := svc.Update(ctx, created.ID, reservation.ReservationUpdate{GuestName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Smythe", updated.GuestName)
	require.Len(t, fake.bodies, 1)
	assert.NotContains(t, fake.bodies[0], "table_ids")

	cancelled, err := svc.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)

	list, err := client.ListReservations(ctx, reservation.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, reservation.StatusCancelled, list[0].Status)
}
