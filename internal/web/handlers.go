package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/rezzydesk/internal/application/agenda"
	"github.com/example/rezzydesk/internal/application/booking"
	"github.com/example/rezzydesk/internal/domain/calendar"
	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/rezzy"
)

type pageData struct {
	Title       string
	User        string
	Flash       string
	Error       string
	FieldErrors map[string]string

	// week
	Snapshot agenda.Snapshot
	Day      string
	PrevWeek string
	NextWeek string
	ThisWeek string

	// new / edit
	Form        formView
	Options     []optionView
	Slots       []slotView
	Reservation reservation.Reservation
	Statuses    []reservation.Status
}

type formView struct {
	Date          string
	Time          string
	PartySize     int
	Duration      int
	GuestName     string
	Phone         string
	Notes         string
	Status        reservation.Status
	PhoneRequired bool
	Searched      bool
	Empty         bool
}

type optionView struct {
	Value    string
	Label    string
	Kind     reservation.OptionKind
	Capacity int
	Selected bool
}

type slotView struct {
	Value string
	Label string
}

func slotViews() []slotView {
	all := reservation.GenerateSlots()
	out := make([]slotView, 0, len(all))
	for _, s := range all {
		out = append(out, slotView{Value: s, Label: reservation.FormatSlot(s)})
	}
	return out
}

// ---- auth ----

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", pageData{Title: "Sign in", Flash: r.URL.Query().Get("flash")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	client := s.client.WithStore(s.cookies.ForRequest(w, r))
	if _, err := client.Login(r.Context(), username, r.FormValue("password")); err != nil {
		s.log.Warn("login %q: %v", username, err)
		s.render(w, "login.html", pageData{Title: "Sign in", Error: message(err)})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	_ = s.cookies.ForRequest(w, r).Clear(r.Context())
	http.Redirect(w, r, "/login", http.StatusFound)
}

// ---- week ----

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	now := s.clock()
	q := r.URL.Query()
	win := calendar.NewWindow(now)
	if d, err := calendar.ParseDate(q.Get("day"), now.Location()); err == nil {
		win = calendar.NewWindowAt(d)
	}
	if wk, err := calendar.ParseDate(q.Get("week"), now.Location()); err == nil {
		win.ShiftWeek(weeksBetween(win.WeekStart(), calendar.WeekStart(wk)))
	}

	view := agenda.NewView(s.clientFor(w, r),
		agenda.WithClock(s.clock),
		agenda.WithWindow(win),
		agenda.WithLogger(s.log),
		agenda.WithMetrics(s.metrics),
	)
	if err := view.Refresh(r.Context()); err != nil && s.redirectIfLoggedOut(w, r, err) {
		return
	}
	snap := view.Snapshot()
	day := win.SelectedISO()
	s.render(w, "week.html", pageData{
		Title:    "Reservations",
		User:     sessionFrom(r).Username,
		Flash:    q.Get("flash"),
		Error:    message(snap.Err),
		Snapshot: snap,
		Day:      day,
		PrevWeek: weekURL(day, win.WeekStart().AddDate(0, 0, -7)),
		NextWeek: weekURL(day, win.WeekStart().AddDate(0, 0, 7)),
		ThisWeek: "/",
	})
}

func weekURL(day string, weekStart time.Time) string {
	v := url.Values{}
	v.Set("day", day)
	v.Set("week", weekStart.Format(reservation.DateFormat))
	return "/?" + v.Encode()
}

func weeksBetween(from, to time.Time) int {
	days := int(to.Sub(from).Round(24*time.Hour).Hours() / 24)
	return days / 7
}

// ---- create ----

func (s *Server) handleNewPage(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("day")
	if date == "" {
		date = s.clock().Format(reservation.DateFormat)
	}
	form := booking.NewForm(s.clientFor(w, r), date)
	s.render(w, "new.html", s.newPageData(r, form))
}

// handleNew rebuilds the form from the posted fields on every step: search, then select + book.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	client := s.clientFor(w, r)
	form := booking.NewForm(client, r.FormValue("reservation_date"),
		booking.WithFormLogger(s.log), booking.WithFormMetrics(s.metrics))
	form.SetTime(r.FormValue("reservation_time"))
	form.SetPartySize(atoi(r.FormValue("party_size")))
	form.SetDuration(atoi(r.FormValue("duration_minutes")))
	form.SetGuestName(r.FormValue("guest_name"))
	form.SetPhone(r.FormValue("phone_number"))
	form.SetNotes(r.FormValue("notes"))

	if err := form.Search(r.Context()); err != nil {
		if s.redirectIfLoggedOut(w, r, err) {
			return
		}
		s.render(w, "new.html", s.newPageData(r, form))
		return
	}
	// A choice only stands for the query whose results the user picked it from.
	shown := searchedQuery(r) == form.Query()
	choice := r.FormValue("option")
	if !shown {
		choice = ""
	}
	book := r.FormValue("action") == "book"
	if choice != "" {
		if err := form.Select(parseOption(choice)); err != nil {
			data := s.newPageData(r, form)
			if book {
				data.Error = "That table is no longer available, pick again."
			}
			s.render(w, "new.html", data)
			return
		}
	}
	if !book {
		s.render(w, "new.html", s.newPageData(r, form))
		return
	}
	if !shown {
		data := s.newPageData(r, form)
		data.Error = "The date, time or party size changed. Pick a table from the updated list."
		s.render(w, "new.html", data)
		return
	}

	svc := s.serviceFor(r, client)
	created, err := form.Submit(r.Context(), svc)
	if err != nil {
		if s.redirectIfLoggedOut(w, r, err) {
			return
		}
		data := s.newPageData(r, form)
		data.Error, data.FieldErrors = describe(err)
		s.render(w, "new.html", data)
		return
	}
	flash := "Booked " + created.GuestName + " at " + reservation.FormatSlot(reservation.NormalizeTime(created.Time)) + ", " + created.TableLabel()
	http.Redirect(w, r, "/?"+url.Values{"day": {created.Date}, "flash": {flash}}.Encode(), http.StatusSeeOther)
}

func (s *Server) newPageData(r *http.Request, form *booking.Form) pageData {
	q := form.Query()
	var opts []optionView
	for _, o := range form.Options() {
		opts = append(opts, optionView{
			Value:    joinIDs(o.TableIDs),
			Label:    o.Label(),
			Kind:     o.Kind,
			Capacity: o.Capacity,
			Selected: form.IsSelected(o),
		})
	}
	data := pageData{
		Title: "New reservation",
		User:  sessionFrom(r).Username,
		Form: formView{
			Date:          q.Date,
			Time:          q.Time,
			PartySize:     q.PartySize,
			Duration:      q.DurationMinutes,
			GuestName:     r.FormValue("guest_name"),
			Phone:         r.FormValue("phone_number"),
			Notes:         r.FormValue("notes"),
			PhoneRequired: form.PhoneRequired(),
			Searched:      form.Phase() != booking.NotSearched,
			Empty:         form.Phase() == booking.SearchedEmpty,
		},
		Options: opts,
		Slots:   slotViews(),
	}
	if err := form.Err(); err != nil {
		data.Error, data.FieldErrors = describe(err)
	}
	return data
}

// searchedQuery is the query the posted options were listed for, echoed back in
// hidden fields. It is the zero Query when nothing was searched yet.
func searchedQuery(r *http.Request) reservation.Query {
	if r.FormValue("searched_date") == "" {
		return reservation.Query{}
	}
	return reservation.Query{
		Date:            strings.TrimSpace(r.FormValue("searched_date")),
		Time:            reservation.NormalizeTime(r.FormValue("searched_time")),
		PartySize:       atoi(r.FormValue("searched_party")),
		DurationMinutes: atoi(r.FormValue("searched_duration")),
	}
}

// ---- edit / cancel ----

func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	id := routeID(r)
	res, err := s.clientFor(w, r).GetReservation(r.Context(), id)
	if err != nil {
		if s.redirectIfLoggedOut(w, r, err) {
			return
		}
		http.Error(w, message(err), statusOf(err))
		return
	}
	s.render(w, "edit.html", editPageData(r, res))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := routeID(r)
	client := s.clientFor(w, r)
	cur, err := client.GetReservation(r.Context(), id)
	if err != nil {
		if s.redirectIfLoggedOut(w, r, err) {
			return
		}
		http.Error(w, message(err), statusOf(err))
		return
	}

	patch := diffPatch(cur, r)
	updated, err := s.serviceFor(r, client).Update(r.Context(), id, patch)
	if err != nil {
		if s.redirectIfLoggedOut(w, r, err) {
			return
		}
		data := editPageData(r, cur)
		data.Error, data.FieldErrors = describe(err)
		s.render(w, "edit.html", data)
		return
	}
	http.Redirect(w, r, "/?"+url.Values{"day": {updated.Date}, "flash": {"Saved " + updated.GuestName}}.Encode(), http.StatusSeeOther)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := routeID(r)
	cancelled, err := s.serviceFor(r, s.clientFor(w, r)).Cancel(r.Context(), id)
	if err != nil {
		if s.redirectIfLoggedOut(w, r, err) {
			return
		}
		http.Redirect(w, r, "/?"+url.Values{"day": {r.FormValue("day")}, "flash": {message(err)}}.Encode(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/?"+url.Values{"day": {cancelled.Date}, "flash": {"Cancelled " + cancelled.GuestName}}.Encode(), http.StatusSeeOther)
}

func editPageData(r *http.Request, res reservation.Reservation) pageData {
	return pageData{
		Title:       "Edit reservation",
		User:        sessionFrom(r).Username,
		Reservation: res,
		Statuses:    reservation.Statuses,
		Slots:       slotViews(),
		Form: formView{
			Date:      res.Date,
			Time:      reservation.NormalizeTime(res.Time),
			PartySize: res.PartySize,
			Duration:  res.DurationMinutes,
			GuestName: res.GuestName,
			Phone:     deref(res.Phone),
			Notes:     deref(res.Notes),
			Status:    res.Status,
		},
	}
}

// diffPatch sends only the fields the user changed. An emptied phone or notes field
// leaves the stored value alone.
func diffPatch(cur reservation.Reservation, r *http.Request) reservation.ReservationUpdate {
	var p reservation.ReservationUpdate
	if v := strings.TrimSpace(r.FormValue("guest_name")); v != cur.GuestName {
		p.GuestName = &v
	}
	if v := atoi(r.FormValue("party_size")); v != cur.PartySize {
		p.PartySize = &v
	}
	if v := strings.TrimSpace(r.FormValue("phone_number")); v != "" && v != deref(cur.Phone) {
		p.Phone = &v
	}
	if v := strings.TrimSpace(r.FormValue("notes")); v != "" && v != deref(cur.Notes) {
		p.Notes = &v
	}
	if v := r.FormValue("reservation_date"); v != cur.Date {
		p.Date = &v
	}
	if v := reservation.NormalizeTime(r.FormValue("reservation_time")); v != reservation.NormalizeTime(cur.Time) {
		p.Time = &v
	}
	if v := atoi(r.FormValue("duration_minutes")); v != cur.DurationMinutes {
		p.DurationMinutes = &v
	}
	if v := reservation.Status(r.FormValue("status")); v != "" && v != cur.Status {
		p.Status = &v
	}
	return p
}

// ---- helpers ----

func (s *Server) clientFor(w http.ResponseWriter, r *http.Request) *rezzy.Client {
	return s.client.WithStore(s.cookies.ForRequest(w, r))
}

func (s *Server) serviceFor(r *http.Request, client *rezzy.Client) *booking.Service {
	opts := []booking.ServiceOption{
		booking.WithActor(sessionFrom(r).Username),
		booking.WithLogger(s.log),
		booking.WithMetrics(s.metrics),
	}
	if s.journal != nil {
		opts = append(opts, booking.WithRecorder(s.journal))
	}
	return booking.NewService(client, opts...)
}

// redirectIfLoggedOut sends the browser to the login page when err means the session is gone.
func (s *Server) redirectIfLoggedOut(w http.ResponseWriter, r *http.Request, err error) bool {
	if !rezzy.IsUnauthorized(err) {
		return false
	}
	http.Redirect(w, r, "/login?"+url.Values{"flash": {"Your session expired, sign in again."}}.Encode(), http.StatusFound)
	return true
}

func describe(err error) (string, map[string]string) {
	var verrs booking.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, v := range verrs {
			fields[v.Field] = v.Message
		}
		return "Please fix the highlighted fields.", fields
	}
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		return verr.Message, map[string]string{verr.Field: verr.Message}
	}
	return message(err), nil
}

func message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *rezzy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func statusOf(err error) int {
	var apiErr *rezzy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

func routeID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func parseOption(v string) reservation.Option {
	var o reservation.Option
	for _, part := range strings.Split(v, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			o.TableIDs = append(o.TableIDs, id)
		}
	}
	return o
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
