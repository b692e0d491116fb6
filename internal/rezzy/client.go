// Package rezzy is the HTTP client of the Rezzy reservation API.
package rezzy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/rezzydesk/internal/domain/reservation"
	"github.com/example/rezzydesk/internal/internaltypes"
	"github.com/example/rezzydesk/internal/metrics"
	"github.com/example/rezzydesk/internal/session"
)

type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// Client talks to one Rezzy server on behalf of whoever is stored in its session store.
type Client struct {
	hc      *http.Client
	baseURL string
	store   session.Store
	log     Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

func WithLogger(l Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		log:     nopLogger{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithStore returns a copy of c bound to another session store. The web UI uses it
// to act for the user behind each request.
func (c *Client) WithStore(store session.Store) *Client {
	cp := *c
	cp.store = store
	return &cp
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Session(ctx context.Context) (session.Session, error) {
	return c.store.Load(ctx)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token and stores the new session.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	status, body, err := c.do(ctx, request{
		method:      http.MethodPost,
		route:       "/auth/login",
		path:        "/auth/login",
		contentType: "application/x-www-form-urlencoded",
		body:        []byte(form.Encode()),
	})
	if err != nil {
		return session.Session{}, err
	}
	if status >= 300 {
		return session.Session{}, decodeError(status, body)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return session.Session{}, fmt.Errorf("%w: login returned no token", ErrInvalidResponse)
	}
	sess := session.Session{Token: tr.AccessToken, Username: username}
	if err := c.store.Save(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

func (c *Client) ListReservations(ctx context.Context, f reservation.ListFilter) ([]reservation.Reservation, error) {
	q := url.Values{}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	var out []reservation.Reservation
	if err := c.call(ctx, request{method: http.MethodGet, route: "/reservations", path: "/reservations", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReservation(ctx context.Context, id int64) (reservation.Reservation, error) {
	var out reservation.Reservation
	err := c.call(ctx, request{method: http.MethodGet, route: "/reservations/{id}", path: reservationPath(id)}, &out)
	return out, err
}

// Available asks which tables or combos can seat the query. Options are returned in server
// order; any option breaking the table/combo shape rejects the whole response.
func (c *Client) Available(ctx context.Context, q reservation.Query) ([]reservation.Option, error) {
	params := url.Values{}
	params.Set("reservation_date", q.Date)
	params.Set("reservation_time", q.Time)
	params.Set("party_size", strconv.Itoa(q.PartySize))
	if q.DurationMinutes > 0 {
		params.Set("duration_minutes", strconv.Itoa(q.DurationMinutes))
	}
	var out []reservation.Option
	if err := c.call(ctx, request{method: http.MethodGet, route: "/reservations/available", path: "/reservations/available", query: params}, &out); err != nil {
		return nil, err
	}
	for i, o := range out {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("%w: option %d: %v", ErrInvalidResponse, i, err)
		}
	}
	return out, nil
}

func (c *Client) CreateReservation(ctx context.Context, in reservation.ReservationCreate) (reservation.Reservation, error) {
	var out reservation.Reservation
	err := c.callJSON(ctx, http.MethodPost, "/reservations", "/reservations", in, &out)
	return out, err
}

func (c *Client) UpdateReservation(ctx context.Context, id int64, patch reservation.ReservationUpdate) (reservation.Reservation, error) {
	var out reservation.Reservation
	err := c.callJSON(ctx, http.MethodPatch, "/reservations/{id}", reservationPath(id), patch, &out)
	return out, err
}

func (c *Client) CancelReservation(ctx context.Context, id int64) (reservation.Reservation, error) {
	var out reservation.Reservation
	err := c.call(ctx, request{method: http.MethodPost, route: "/reservations/{id}/cancel", path: reservationPath(id) + "/cancel"}, &out)
	return out, err
}

func reservationPath(id int64) string {
	return "/reservations/" + strconv.FormatInt(id, 10)
}

// --- transport ---

type request struct {
	method      string
	route       string // metric label, path template
	path        string
	query       url.Values
	contentType string
	body        []byte
	authed      bool
}

func (c *Client) callJSON(ctx context.Context, method, route, path string, in, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.call(ctx, request{method: method, route: route, path: path, contentType: "application/json", body: b}, out)
}

// call runs an authenticated request and decodes a 2xx body into out.
func (c *Client) call(ctx context.Context, r request, out interface{}) error {
	r.authed = true
	status, body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if status >= 300 {
		return decodeError(status, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, r.method, r.route, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, r request) (int, []byte, error) {
	var token string
	if r.authed {
		sess, err := c.store.Load(ctx)
		if err != nil {
			return 0, nil, err
		}
		token = sess.Token
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bytes.NewReader(r.body))
	if err != nil {
		return 0, nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if len(r.query) > 0 {
		req.URL.RawQuery = r.query.Encode()
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(r.method, r.route, 0, time.Since(start))
		return 0, nil, fmt.Errorf("rezzy: %s %s: %w", r.method, r.route, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	c.metrics.ObserveRequest(r.method, r.route, res.StatusCode, time.Since(start))
	c.log.Debug("rezzy %s %s -> %d (request_id=%s)", r.method, r.path, res.StatusCode, reqID)
	if err != nil {
		return res.StatusCode, nil, err
	}

	if res.StatusCode == http.StatusUnauthorized && r.authed {
		if cerr := c.store.Clear(ctx); cerr != nil {
			c.log.Warn("clear session after 401: %v", cerr)
		}
		return res.StatusCode, b, internaltypes.ErrUnauthorized
	}
	return res.StatusCode, b, nil
}

// IsUnauthorized reports whether err means the user has to log in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, internaltypes.ErrUnauthorized) || errors.Is(err, internaltypes.ErrNoSession)
}
