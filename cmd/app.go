package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/rezzydesk/internal/application/booking"
	"github.com/example/rezzydesk/internal/config"
	"github.com/example/rezzydesk/internal/db"
	"github.com/example/rezzydesk/internal/internaltypes"
	"github.com/example/rezzydesk/internal/journal"
	"github.com/example/rezzydesk/internal/logging"
	"github.com/example/rezzydesk/internal/metrics"
	"github.com/example/rezzydesk/internal/migrate"
	"github.com/example/rezzydesk/internal/rezzy"
	"github.com/example/rezzydesk/internal/session"
)

// app is everything a command needs, built from config once per invocation.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	store   session.Store
	client  *rezzy.Client
	db      *db.DB
	journal *journal.Repo
	closers []func()
}

type appOptions struct {
	// needStore is false only for commands that never touch the session (server).
	needStore bool
	journal   bool
}

func newApp(ctx context.Context, o appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg: cfg,
		log: logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel)),
		reg: prometheus.NewRegistry(),
	}
	a.metrics = metrics.New(a.reg)

	if o.needStore {
		if a.store, err = a.openStore(ctx); err != nil {
			return nil, err
		}
	} else {
		a.store = session.NewMemoryStore(nil)
	}
	a.client = rezzy.New(cfg.APIURL, a.store,
		rezzy.WithTimeout(cfg.HTTPTimeout),
		rezzy.WithLogger(a.log),
		rezzy.WithMetrics(a.metrics),
	)

	if o.journal && cfg.DatabaseURL != "" {
		if err := a.openJournal(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionBackend {
	case config.SessionBackendRedis:
		rs := session.NewRedisStore(session.NewRedisClient(session.RedisOptions{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		}), "default", 24*time.Hour)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rs.Close() })
		return rs, nil
	default:
		if err := a.cfg.RequireKeys(); err != nil {
			return nil, err
		}
		return session.NewFileStore(a.cfg.SessionFile, a.cfg.CookieHashKey, a.cfg.CookieBlockKey), nil
	}
}

func (a *app) openJournal(ctx context.Context) error {
	d, err := db.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, d.Close)
	if err := d.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	n, err := migrate.Up(ctx, d)
	if err != nil {
		return err
	}
	if n > 0 {
		a.log.Info("applied %d journal migration(s)", n)
	}
	a.db = d
	a.journal = journal.NewRepo(d)
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// session returns the stored login, treating an expired token as no login at all.
func (a *app) session(ctx context.Context) (session.Session, error) {
	sess, err := a.store.Load(ctx)
	if err != nil {
		return session.Session{}, err
	}
	if session.Expired(sess.Token, time.Now()) {
		_ = a.store.Clear(ctx)
		return session.Session{}, internaltypes.ErrNoSession
	}
	return sess, nil
}

func (a *app) service(ctx context.Context, extra ...booking.ServiceOption) (*booking.Service, error) {
	sess, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	opts := []booking.ServiceOption{
		booking.WithActor(sess.Username),
		booking.WithLogger(a.log),
		booking.WithMetrics(a.metrics),
	}
	if a.journal != nil {
		opts = append(opts, booking.WithRecorder(a.journal))
	}
	return booking.NewService(a.client, append(opts, extra...)...), nil
}

func isNoSession(err error) bool {
	return errors.Is(err, internaltypes.ErrNoSession)
}
