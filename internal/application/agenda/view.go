// Package agenda keeps the week view of reservations current while it is shown.
package agenda

import (
	"context"
	"sync"
	"time"

	"github.com/example/rezzydesk/internal/domain/calendar"
	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/metrics"
	"github.com/example/rezzydesk/internal/scheduler"
)

const (
	DefaultNowTick = 30 * time.Second
	DefaultRefetch = 60 * time.Second
)

type Lister interface {
	ListReservations(ctx context.Context, f reservation.ListFilter) ([]reservation.Reservation, error)
}

type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// Entry is one row of the selected day.
type Entry struct {
	Reservation  reservation.Reservation
	Time         string
	TableLabel   string
	StartingSoon bool
}

type Snapshot struct {
	Now       time.Time
	WeekStart time.Time
	Selected  time.Time
	Days      []calendar.Day
	Entries   []Entry
	Loaded    bool
	Err       error
}

// View owns a calendar window and the reservations of its visible week. Between Start
// and Stop it ticks "now" and refetches on its own schedule.
type View struct {
	lister   Lister
	log      Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
	nowTick  time.Duration
	refetch  time.Duration
	onChange func()

	hasWindow bool

	mu      sync.RWMutex
	window  calendar.Window
	now     time.Time
	list    []reservation.Reservation
	loaded  bool
	lastErr error
	// refreshGen tags each Refresh; only the latest one may apply its response.
	refreshGen uint64

	sched *scheduler.Scheduler
}

type Option func(*View)

func WithClock(fn func() time.Time) Option {
	return func(v *View) { v.clock = fn }
}

func WithIntervals(nowTick, refetch time.Duration) Option {
	return func(v *View) {
		if nowTick > 0 {
			v.nowTick = nowTick
		}
		if refetch > 0 {
			v.refetch = refetch
		}
	}
}

// WithWindow opens the view on w instead of the current week.
func WithWindow(w calendar.Window) Option {
	return func(v *View) { v.window = w; v.hasWindow = true }
}

func WithLogger(l Logger) Option {
	return func(v *View) { v.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *View) { v.metrics = m }
}

// OnChange registers a callback run after every tick, refetch or navigation.
func OnChange(fn func()) Option {
	return func(v *View) { v.onChange = fn }
}

func NewView(lister Lister, opts ...Option) *View {
	v := &View{
		lister:  lister,
		log:     nopLogger{},
		clock:   time.Now,
		nowTick: DefaultNowTick,
		refetch: DefaultRefetch,
	}
	for _, o := range opts {
		o(v)
	}
	v.now = v.clock()
	if !v.hasWindow {
		v.window = calendar.NewWindow(v.now)
	}
	return v
}

// Start schedules the now tick and the refetch. The refetch runs once right away.
func (v *View) Start(ctx context.Context) error {
	s := &scheduler.Scheduler{Tasks: []scheduler.Task{
		{Name: "now-tick", Interval: v.nowTick, Run: func(context.Context) { v.Tick() }},
		{Name: "refetch", Interval: v.refetch, Immediate: true, Run: func(ctx context.Context) {
			if err := v.Refresh(ctx); err != nil && ctx.Err() == nil {
				v.log.Warn("agenda refetch: %v", err)
			}
		}},
	}}
	if err := s.Start(ctx); err != nil {
		return err
	}
	v.mu.Lock()
	v.sched = s
	v.mu.Unlock()
	return nil
}

// Stop cancels both tasks and waits for them.
func (v *View) Stop() {
	v.mu.Lock()
	s := v.sched
	v.sched = nil
	v.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

func (v *View) Tick() {
	now := v.clock()
	v.mu.Lock()
	v.now = now
	v.mu.Unlock()
	v.changed()
}

// Refresh lists the visible week. A response overtaken by a later Refresh, or for a
// week that is no longer visible, is dropped.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.refreshGen++
	tag := v.refreshGen
	start, end := v.window.Range()
	v.mu.Unlock()

	list, err := v.lister.ListReservations(ctx, reservation.ListFilter{StartDate: start, EndDate: end})

	v.mu.Lock()
	if tag != v.refreshGen {
		v.mu.Unlock()
		v.log.Debug("agenda: dropping list for %s..%s, superseded by a later refresh", start, end)
		return nil
	}
	curStart, curEnd := v.window.Range()
	if curStart != start || curEnd != end {
		v.mu.Unlock()
		v.log.Debug("agenda: dropping list for %s..%s, window moved", start, end)
		return nil
	}
	if err != nil {
		v.lastErr = err
		v.mu.Unlock()
		v.metrics.RefreshFailed()
		v.changed()
		return err
	}
	v.list = list
	v.loaded = true
	v.lastErr = nil
	v.mu.Unlock()
	v.changed()
	return nil
}

func (v *View) SelectDay(day time.Time) {
	v.mu.Lock()
	v.window.SelectDay(day)
	v.mu.Unlock()
	v.changed()
}

// ShiftWeek moves the visible week and refetches it.
func (v *View) ShiftWeek(ctx context.Context, delta int) error {
	v.mu.Lock()
	v.window.ShiftWeek(delta)
	v.list = nil
	v.loaded = false
	v.mu.Unlock()
	return v.Refresh(ctx)
}

func (v *View) Window() calendar.Window {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.window
}

// Snapshot derives everything a renderer needs at the view's current now.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	day := v.window.SelectedISO()
	rows := calendar.DayReservations(day, v.list)
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			Reservation:  r,
			Time:         reservation.FormatSlot(reservation.NormalizeTime(r.Time)),
			TableLabel:   r.TableLabel(),
			StartingSoon: calendar.StartingSoon(r, v.now),
		})
	}
	return Snapshot{
		Now:       v.now,
		WeekStart: v.window.WeekStart(),
		Selected:  v.window.Selected(),
		Days:      v.window.Days(v.now, v.list),
		Entries:   entries,
		Loaded:    v.loaded,
		Err:       v.lastErr,
	}
}

func (v *View) changed() {
	if v.onChange != nil {
		v.onChange()
	}
}
