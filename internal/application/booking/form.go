// Package booking drives the reservation workflow: availability search, table assignment
// and the create/update/cancel calls that follow.
package booking

import (
	"context"
	"strings"
	"sync"

	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/metrics"
)

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}

type Phase int

const (
	NotSearched Phase = iota
	SearchedEmpty
	SearchedWithOptions
)

func (p Phase) String() string {
	switch p {
	case SearchedEmpty:
		return "searched-empty"
	case SearchedWithOptions:
		return "searched-with-options"
	default:
		return "not-searched"
	}
}

const (
	DefaultPartySize = 2
	DefaultTime      = "19:00"
)

// Form is the state of one create-reservation dialog. Every search is tagged with a fresh
// generation and every query edit bumps it again; a result whose tag no longer matches
// the live generation is dropped on arrival.
type Form struct {
	finder  reservation.AvailabilityFinder
	log     Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	query     reservation.Query
	guestName string
	phone     string
	notes     string
	gen       uint64
	phase     Phase
	options   []reservation.Option
	selected  *reservation.Option
	err       error
}

type FormOption func(*Form)

func WithFormLogger(l Logger) FormOption {
	return func(f *Form) { f.log = l }
}

func WithFormMetrics(m *metrics.Metrics) FormOption {
	return func(f *Form) { f.metrics = m }
}

// NewForm opens a form for date with the default party, time and duration.
func NewForm(finder reservation.AvailabilityFinder, date string, opts ...FormOption) *Form {
	f := &Form{
		finder: finder,
		log:    nopLogger{},
		query: reservation.Query{
			Date:            date,
			Time:            DefaultTime,
			PartySize:       DefaultPartySize,
			DurationMinutes: reservation.DefaultDurationMinutes,
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// invalidate must be called with mu held.
func (f *Form) invalidate() {
	f.gen++
	f.phase = NotSearched
	f.options = nil
	f.selected = nil
	f.err = nil
}

func (f *Form) SetDate(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query.Date = strings.TrimSpace(date)
	f.invalidate()
}

func (f *Form) SetTime(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query.Time = reservation.NormalizeTime(t)
	f.invalidate()
}

func (f *Form) SetPartySize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query.PartySize = n
	f.invalidate()
}

func (f *Form) SetDuration(minutes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query.DurationMinutes = minutes
	f.invalidate()
}

func (f *Form) SetGuestName(s string) {
	f.mu.Lock()
	f.guestName = s
	f.mu.Unlock()
}

func (f *Form) SetPhone(s string) {
	f.mu.Lock()
	f.phone = s
	f.mu.Unlock()
}

func (f *Form) SetNotes(s string) {
	f.mu.Lock()
	f.notes = s
	f.mu.Unlock()
}

// Search asks the server for options matching the current query. A response that arrives
// after the query changed, or after a later Search was issued, is discarded without
// touching the form.
func (f *Form) Search(ctx context.Context) error {
	f.mu.Lock()
	q := f.query
	if err := ValidateQuery(q); err != nil {
		f.err = err
		f.mu.Unlock()
		return err
	}
	// a newer search supersedes this one even when the query is unchanged
	f.gen++
	tag := f.gen
	f.mu.Unlock()

	opts, err := f.finder.Available(ctx, q)

	f.mu.Lock()
	defer f.mu.Unlock()
	if tag != f.gen {
		f.metrics.StaleResult()
		f.log.Info("discarding availability for %s %s party=%d: query changed", q.Date, q.Time, q.PartySize)
		return nil
	}
	if err != nil {
		f.err = err
		f.phase = NotSearched
		f.options = nil
		f.selected = nil
		return err
	}
	f.err = nil
	f.selected = nil
	f.options = opts
	if len(opts) == 0 {
		f.phase = SearchedEmpty
	} else {
		f.phase = SearchedWithOptions
	}
	return nil
}

// Select makes opt the assignment. Only a member of the current result set is accepted,
// matched by table set; the stored value is the server's own option.
func (f *Form) Select(opt reservation.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found, ok := reservation.FindOption(f.options, opt)
	if !ok {
		return ErrNotAnOption
	}
	f.selected = &found
	return nil
}

func (f *Form) ClearSelection() {
	f.mu.Lock()
	f.selected = nil
	f.mu.Unlock()
}

func (f *Form) IsSelected(opt reservation.Option) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected != nil && reservation.SameTables(*f.selected, opt)
}

func (f *Form) Selected() (reservation.Option, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected == nil {
		return reservation.Option{}, false
	}
	return *f.selected, true
}

func (f *Form) Query() reservation.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query
}

func (f *Form) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Options returns the current result set in server order.
func (f *Form) Options() []reservation.Option {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reservation.Option, len(f.options))
	copy(out, f.options)
	return out
}

// Err is the banner error of the last search, nil after a successful one.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Form) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

// Payload validates the whole form and builds the create body. Its TableIDs are exactly
// the selected option's ids.
func (f *Form) Payload() (reservation.ReservationCreate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var v ValidationErrors
	name := trimmed(f.guestName)
	if name == "" {
		v.add("guest_name", "guest name is required")
	}
	checkPartySize(&v, f.query.PartySize)
	checkDate(&v, f.query.Date)
	checkTime(&v, f.query.Time)
	checkDuration(&v, f.query.DurationMinutes)
	if f.selected == nil {
		v.add("table_ids", "select a table or combo")
	}
	if err := v.orNil(); err != nil {
		return reservation.ReservationCreate{}, err
	}

	ids := make([]int64, len(f.selected.TableIDs))
	copy(ids, f.selected.TableIDs)
	return reservation.ReservationCreate{
		GuestName:       name,
		PartySize:       f.query.PartySize,
		Phone:           optional(trimmed(f.phone)),
		Notes:           optional(trimmed(f.notes)),
		Date:            f.query.Date,
		Time:            f.query.Time,
		DurationMinutes: f.query.DurationMinutes,
		TableIDs:        ids,
	}, nil
}

// PhoneRequired reports whether the server will insist on a phone number for this party.
// The form only labels the field; the server's 422 is the enforcement.
func (f *Form) PhoneRequired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query.PartySize >= PhoneRequiredAtSize
}

// Submit validates and creates the reservation through svc.
func (f *Form) Submit(ctx context.Context, svc *Service) (reservation.Reservation, error) {
	in, err := f.Payload()
	if err != nil {
		return reservation.Reservation{}, err
	}
	return svc.Create(ctx, in)
}

func trimmed(s string) string { return strings.TrimSpace(s) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
