package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/metrics"
)

var (
	table3  = reservation.Option{Kind: reservation.KindTable, TableIDs: []int64{3}, TableLabels: []string{"3"}, Capacity: 4}
	combo12 = reservation.Option{Kind: reservation.KindCombo, TableIDs: []int64{1, 2}, TableLabels: []string{"1", "2"}, Capacity: 5}
)

func searchedForm(t *testing.T) (*Form, *mockBackend) {
	t.Helper()
	be := &mockBackend{}
	be.On("Available", mock.Anything, mock.Anything).Return([]reservation.Option{table3, combo12}, nil)
	f := NewForm(be, "2024-06-10")
	require.NoError(t, f.Search(context.Background()))
	require.Equal(t, SearchedWithOptions, f.Phase())
	require.NoError(t, f.Select(combo12))
	return f, be
}

func TestNewForm_Defaults(t *testing.T) {
	f := NewForm(&mockBackend{}, "2024-06-10")
	assert.Equal(t, reservation.Query{Date: "2024-06-10", Time: "19:00", PartySize: 2, DurationMinutes: 90}, f.Query())
	assert.Equal(t, NotSearched, f.Phase())
}

func TestQueryEditsClearResultAndSelection(t *testing.T) {
	edits := map[string]func(f *Form){
		"date":     func(f *Form) { f.SetDate("2024-06-11") },
		"time":     func(f *Form) { f.SetTime("20:00") },
		"party":    func(f *Form) { f.SetPartySize(6) },
		"duration": func(f *Form) { f.SetDuration(120) },
	}
	for name, edit := range edits {
		edit := edit
		t.Run(name, func(t *testing.T) {
			once, _ := searchedForm(t)
			edit(once)
			assert.Equal(t, NotSearched, once.Phase())
			assert.Empty(t, once.Options())
			_, ok := once.Selected()
			assert.False(t, ok)

			twice, _ := searchedForm(t)
			edit(twice)
			edit(twice)
			assert.Equal(t, once.Query(), twice.Query())
			assert.Equal(t, once.Phase(), twice.Phase())
			assert.Equal(t, once.Options(), twice.Options())
			_, ok = twice.Selected()
			assert.False(t, ok)
		})
	}
}

func TestGuestFieldsKeepAvailability(t *testing.T) {
	f, _ := searchedForm(t)
	f.SetGuestName("Smith")
	f.SetPhone("555-0100")
	f.SetNotes("window seat")
	assert.Equal(t, SearchedWithOptions, f.Phase())
	assert.True(t, f.IsSelected(combo12))
}

// gatedFinder answers each Available call only when its gate is released.
type gatedFinder struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	resp  map[string][]reservation.Option
}

func newGatedFinder() *gatedFinder {
	return &gatedFinder{gates: map[string]chan struct{}{}, resp: map[string][]reservation.Option{}}
}

func (g *gatedFinder) prepare(tm string, opts []reservation.Option) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[tm] = make(chan struct{})
	g.resp[tm] = opts
}

func (g *gatedFinder) release(tm string) {
	g.mu.Lock()
	ch := g.gates[tm]
	g.mu.Unlock()
	close(ch)
}

func (g *gatedFinder) Available(ctx context.Context, q reservation.Query) ([]reservation.Option, error) {
	g.mu.Lock()
	ch, opts := g.gates[q.Time], g.resp[q.Time]
	g.mu.Unlock()
	select {
	case <-ch:
		return opts, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLateResponseOfOlderQueryIsDiscarded(t *testing.T) {
	g := newGatedFinder()
	g.prepare("19:00", []reservation.Option{table3})
	g.prepare("20:00", []reservation.Option{combo12})
	m := metrics.New(prometheus.NewRegistry())
	f := NewForm(g, "2024-06-10", WithFormMetrics(m))
	ctx := context.Background()

	doneA := make(chan error, 1)
	go func() { doneA <- f.Search(ctx) }()
	require.Eventually(t, func() bool { return f.Generation() == 1 }, time.Second, time.Millisecond)

	f.SetTime("20:00")
	doneB := make(chan error, 1)
	go func() { doneB <- f.Search(ctx) }()
	require.Eventually(t, func() bool { return f.Generation() == 3 }, time.Second, time.Millisecond)

	g.release("20:00")
	require.NoError(t, <-doneB)
	g.release("19:00")
	require.NoError(t, <-doneA)

	assert.Equal(t, []reservation.Option{combo12}, f.Options())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleDiscarded))
}

func TestRepeatedSearchLaterIssueWins(t *testing.T) {
	var calls int
	var mu sync.Mutex
	gateFirst := make(chan struct{})
	finder := finderFunc(func(ctx context.Context, q reservation.Query) ([]reservation.Option, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			<-gateFirst
			return []reservation.Option{table3}, nil
		}
		return []reservation.Option{combo12}, nil
	})
	f := NewForm(finder, "2024-06-10")
	ctx := context.Background()

	doneA := make(chan error, 1)
	go func() { doneA <- f.Search(ctx) }()
	require.Eventually(t, func() bool { return f.Generation() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, f.Search(ctx))
	close(gateFirst)
	require.NoError(t, <-doneA)

	assert.Equal(t, []reservation.Option{combo12}, f.Options())
}

func TestStaleErrorIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	finder := finderFunc(func(ctx context.Context, q reservation.Query) ([]reservation.Option, error) {
		<-gate
		return nil, errors.New("boom")
	})
	f := NewForm(finder, "2024-06-10")
	done := make(chan error, 1)
	go func() { done <- f.Search(context.Background()) }()
	require.Eventually(t, func() bool { return f.Generation() == 1 }, time.Second, time.Millisecond)
	f.SetPartySize(3)
	close(gate)
	assert.NoError(t, <-done)
	assert.NoError(t, f.Err())
	assert.Equal(t, NotSearched, f.Phase())
}

func TestSearchErrorBecomesBanner(t *testing.T) {
	be := &mockBackend{}
	be.On("Available", mock.Anything, mock.Anything).Return(nil, errors.New("server down"))
	f := NewForm(be, "2024-06-10")
	err := f.Search(context.Background())
	require.Error(t, err)
	assert.EqualError(t, f.Err(), "server down")
	assert.Equal(t, NotSearched, f.Phase())
}

func TestSearchEmpty(t *testing.T) {
	be := &mockBackend{}
	be.On("Available", mock.Anything, mock.Anything).Return([]reservation.Option{}, nil)
	f := NewForm(be, "2024-06-10")
	require.NoError(t, f.Search(context.Background()))
	assert.Equal(t, SearchedEmpty, f.Phase())
}

func TestSearchRejectsInvalidQueryWithoutNetwork(t *testing.T) {
	be := &mockBackend{}
	f := NewForm(be, "not-a-date")
	f.SetTime("19:07")
	err := f.Search(context.Background())
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	_, ok := verrs.Field("reservation_date")
	assert.True(t, ok)
	_, ok = verrs.Field("reservation_time")
	assert.True(t, ok)
	be.AssertNotCalled(t, "Available", mock.Anything, mock.Anything)
}

func TestSelect(t *testing.T) {
	f, _ := searchedForm(t)

	reversed := reservation.Option{Kind: reservation.KindCombo, TableIDs: []int64{2, 1}}
	assert.True(t, f.IsSelected(reversed))
	require.NoError(t, f.Select(reversed))
	got, ok := f.Selected()
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2}, got.TableIDs, "server instance is stored")

	stranger := reservation.Option{Kind: reservation.KindTable, TableIDs: []int64{9}}
	assert.ErrorIs(t, f.Select(stranger), ErrNotAnOption)
	assert.True(t, f.IsSelected(combo12))

	f.ClearSelection()
	assert.False(t, f.IsSelected(combo12))
}

func TestPayload_Validation(t *testing.T) {
	be := &mockBackend{}
	f := NewForm(be, "2024-06-10")
	f.SetDuration(20)
	f.SetPartySize(0)
	_, err := f.Payload()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	for _, field := range []string{"guest_name", "party_size", "duration_minutes", "table_ids"} {
		_, ok := verrs.Field(field)
		assert.True(t, ok, field)
	}

	f.SetDuration(100)
	_, err = f.Payload()
	require.ErrorAs(t, err, &verrs)
	_, ok := verrs.Field("duration_minutes")
	assert.True(t, ok, "off the 15 minute step")
}

func TestPayload_UsesSelectedTables(t *testing.T) {
	f, _ := searchedForm(t)
	f.SetGuestName("  Smith ")
	f.SetNotes("")
	in, err := f.Payload()
	require.NoError(t, err)
	assert.Equal(t, "Smith", in.GuestName)
	assert.Equal(t, []int64{1, 2}, in.TableIDs)
	assert.Nil(t, in.Phone)
	assert.Nil(t, in.Notes)
}

func TestPhoneRequired(t *testing.T) {
	f := NewForm(&mockBackend{}, "2024-06-10")
	assert.False(t, f.PhoneRequired())
	f.SetPartySize(4)
	assert.True(t, f.PhoneRequired())
}

type finderFunc func(ctx context.Context, q reservation.Query) ([]reservation.Option, error)

func (fn finderFunc) Available(ctx context.Context, q reservation.Query) ([]reservation.Option, error) {
	return fn(ctx, q)
}

func TestSearchErrorDropsEarlierResult(t *testing.T) {
	f, be := searchedForm(t)
	be.ExpectedCalls = nil
	be.On("Available", mock.Anything, mock.Anything).Return(nil, errors.New("server down"))

	require.Error(t, f.Search(context.Background()))
	assert.EqualError(t, f.Err(), "server down")
	assert.Equal(t, NotSearched, f.Phase())
	assert.Empty(t, f.Options())
	_, ok := f.Selected()
	assert.False(t, ok)

	f.SetGuestName("Smith")
	_, err := f.Payload()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	_, missing := verrs.Field("table_ids")
	assert.True(t, missing)
}
