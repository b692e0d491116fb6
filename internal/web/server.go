// Package web serves the back-office UI: the week agenda and the booking forms.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/rezzydesk/internal/application/booking"
	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/logging"
	"github.com/example/rezzydesk/internal/metrics"
	"github.com/example/rezzydesk/internal/rezzy"
	"github.com/example/rezzydesk/internal/session"
)

//go:embed templates/*.html static/*
var assets embed.FS

var pages = []string{"login.html", "week.html", "new.html", "edit.html"}

type Server struct {
	client  *rezzy.Client
	cookies *session.CookieCodec
	journal booking.Recorder
	metrics *metrics.Metrics
	gather  prometheus.Gatherer
	log     *logging.Logger
	clock   func() time.Time
	tmpl    map[string]*template.Template
}

type Deps struct {
	Client  *rezzy.Client
	Cookies *session.CookieCodec
	// Journal is optional.
	Journal  booking.Recorder
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      *logging.Logger
	Clock    func() time.Time
}

func New(d Deps) (*Server, error) {
	s := &Server{
		client:  d.Client,
		cookies: d.Cookies,
		journal: d.Journal,
		metrics: d.Metrics,
		gather:  d.Gatherer,
		log:     d.Log,
		clock:   d.Clock,
		tmpl:    make(map[string]*template.Template, len(pages)),
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.gather == nil {
		s.gather = prometheus.DefaultGatherer
	}
	funcs := template.FuncMap{"slot": reservation.FormatSlot}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		s.tmpl[name] = t
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLog)

	static, _ := fs.Sub(assets, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet, http.MethodPost)

	app := r.NewRoute().Subrouter()
	app.Use(s.requireSession)
	app.HandleFunc("/", s.handleWeek).Methods(http.MethodGet)
	app.HandleFunc("/reservations/new", s.handleNewPage).Methods(http.MethodGet)
	app.HandleFunc("/reservations/new", s.handleNew).Methods(http.MethodPost)
	app.HandleFunc("/reservations/{id:[0-9]+}/edit", s.handleEditPage).Methods(http.MethodGet)
	app.HandleFunc("/reservations/{id:[0-9]+}/edit", s.handleEdit).Methods(http.MethodPost)
	app.HandleFunc("/reservations/{id:[0-9]+}/cancel", s.handleCancel).Methods(http.MethodPost)
	return r
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	t, ok := s.tmpl[name]
	if !ok {
		http.Error(w, "unknown template "+name, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.log.Error("render %s: %v", name, err)
	}
}

// Start serves h on addr until ctx is cancelled.
func Start(ctx context.Context, addr string, h http.Handler, log *logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
