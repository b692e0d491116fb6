// Package metrics holds the Prometheus collectors of the back-office client.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	APIRequests       *prometheus.CounterVec
	APIDuration       *prometheus.HistogramVec
	StaleDiscarded    prometheus.Counter
	Mutations         *prometheus.CounterVec
	ViewRefreshErrors prometheus.Counter
}

// New registers the collectors on reg. Passing a fresh registry keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rezzydesk_api_requests_total",
			Help: "Requests sent to the Rezzy API",
		}, []string{"method", "route", "code"}),
		APIDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rezzydesk_api_request_duration_seconds",
			Help:    "Latency of Rezzy API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		StaleDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "rezzydesk_stale_results_discarded_total",
			Help: "Availability responses dropped because the query changed while they were in flight",
		}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rezzydesk_reservation_mutations_total",
			Help: "Create/update/cancel calls by outcome",
		}, []string{"op", "outcome"}),
		ViewRefreshErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "rezzydesk_view_refresh_errors_total",
			Help: "Failed reservation list refetches",
		}),
	}
}

// ObserveRequest is a no-op on a nil receiver so callers can run without metrics.
func (m *Metrics) ObserveRequest(method, route string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.APIDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (m *Metrics) StaleResult() {
	if m == nil {
		return
	}
	m.StaleDiscarded.Inc()
}

func (m *Metrics) Mutation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Mutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.ViewRefreshErrors.Inc()
}
